package factories

import (
	"testing"

	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePassengers(t *testing.T) {
	passengers := NewPassengerFactory(7).CreatePassengers(5)
	require.Len(t, passengers, 5)

	tickets := make(map[string]bool)
	for i, p := range passengers {
		assert.Equal(t, i, p.ID)
		assert.NotEmpty(t, p.Name)
		assert.Equal(t, models.PassengerStatusArrived, p.Status)
		assert.Equal(t, -1, p.CarID)
		assert.False(t, p.ArrivedAt.IsZero())
		assert.Zero(t, p.WaitDuration())

		assert.False(t, tickets[p.TicketID], "ticket %s issued twice", p.TicketID)
		tickets[p.TicketID] = true
	}
}

func TestCreatePassengersSameSeedSameNames(t *testing.T) {
	a := NewPassengerFactory(42).CreatePassengers(3)
	b := NewPassengerFactory(42).CreatePassengers(3)
	for i := range a {
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.NotEqual(t, a[i].TicketID, b[i].TicketID)
	}
}
