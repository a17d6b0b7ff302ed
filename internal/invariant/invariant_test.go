package invariant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Exec(err ViolationError) {
	m.Called(err)
}

func TestViolationErrorMessage(t *testing.T) {
	err := ViolationError{Statement: "car 3 unboarded while empty"}
	assert.EqualError(t, err, "invariant violation: car 3 unboarded while empty")
}

func TestChecksPassingDoNothing(t *testing.T) {
	m := &mockExecutor{}
	defer SetViolationExecutor(SetViolationExecutor(m))

	Check(true, "never")
	Checkf(true, "never %d", 1)

	m.AssertNotCalled(t, "Exec", mock.Anything)
}

func TestFailedChecksReachExecutor(t *testing.T) {
	m := &mockExecutor{}
	defer SetViolationExecutor(SetViolationExecutor(m))

	m.On("Exec", ViolationError{Statement: "plain"}).Once()
	m.On("Exec", ViolationError{Statement: "car 7 is not loading"}).Once()

	Check(false, "plain")
	Checkf(false, "car %d is not loading", 7)

	m.AssertExpectations(t)
}

func TestDefaultExecutorPanics(t *testing.T) {
	assert.PanicsWithValue(t, ViolationError{Statement: "boom"}, func() {
		Violate("boom")
	})
}
