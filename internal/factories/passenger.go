package factories

import (
	"math/rand"
	"time"

	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
)

// PassengerFactory builds passengers. It is not safe for concurrent use.
type PassengerFactory struct {
	fake faker.Faker
	now  func() time.Time
}

func NewPassengerFactory(seed int64) *PassengerFactory {
	return &PassengerFactory{
		fake: faker.NewWithSeed(rand.NewSource(seed)),
		now:  time.Now,
	}
}

func (pf *PassengerFactory) CreatePassenger(id int) *models.Passenger {
	return &models.Passenger{
		ID:        id,
		TicketID:  cuid.New(),
		Name:      pf.fake.Person().Name(),
		Status:    models.PassengerStatusArrived,
		CarID:     -1,
		ArrivedAt: pf.now(),
	}
}

// CreatePassengers builds count passengers with ids 0..count-1.
func (pf *PassengerFactory) CreatePassengers(count int) []*models.Passenger {
	passengers := make([]*models.Passenger, count)
	for i := range passengers {
		passengers[i] = pf.CreatePassenger(i)
	}
	return passengers
}
