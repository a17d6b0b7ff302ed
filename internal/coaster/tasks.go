package coaster

// RunCarDriver drives c through load, run and unload until the car is
// terminated while empty.
func RunCarDriver(c *Car, p *Park) {
	for c.Load() {
		p.StartCar(c)
		c.Run()
		c.Unload()
		p.ReturnCar(c)
	}
}

// RunPassenger queues for the loading car, boards it, rides and gets off.
// A lost race for the last seat sends the passenger back to the queue. It
// returns the car that was ridden.
func RunPassenger(id int, p *Park) *Car {
	for {
		c := p.QueueForCar()
		if !c.Board(id) {
			continue
		}
		c.Ride()
		c.Unboard(id)
		return c
	}
}

// Shutdown terminates every car. No passenger may still be queueing for a
// car when it is called: either every passenger task has returned, or
// every passenger has boarded. Cars holding passengers finish their cycle
// before their drivers exit.
func Shutdown(cars []*Car) {
	for _, c := range cars {
		c.Terminate()
	}
}

// SpawnCarDriver runs the car's driver on its own goroutine. The returned
// channel is closed once the driver has exited.
func SpawnCarDriver(c *Car, p *Park) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunCarDriver(c, p)
	}()
	return done
}

// SpawnPassenger runs a passenger on its own goroutine. The car it rode is
// delivered on the returned channel.
func SpawnPassenger(id int, p *Park) <-chan *Car {
	rode := make(chan *Car, 1)
	go func() {
		rode <- RunPassenger(id, p)
	}()
	return rode
}
