package rtr_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/houseofcat/rabbitretriever/pkg/rtr"
)

func TestCoordinatorShutdownIsOneShot(t *testing.T) {

	channel := newFakeChannel()
	buffer := rtr.NewDeliveryBuffer(10, 5*time.Millisecond)
	coordinator := rtr.NewCancellationCoordinator(channel, "tag-1", buffer, nil)
	coordinator.Watch(context.Background())

	coordinator.Shutdown(false)
	coordinator.Shutdown(true) // loses the race, must not override byUser

	assert.True(t, coordinator.Signaled())
	assert.False(t, coordinator.CancelledByUser())
	assert.True(t, buffer.Closed())
	assert.True(t, channel.wasCancelled())
	assert.Equal(t, rtr.StateShuttingDown, coordinator.State())

	coordinator.Close()
	assert.Equal(t, rtr.StateClosed, coordinator.State())
}

func TestCoordinatorExternalCancelMarksByUser(t *testing.T) {

	channel := newFakeChannel()
	buffer := rtr.NewDeliveryBuffer(10, 5*time.Millisecond)
	coordinator := rtr.NewCancellationCoordinator(channel, "tag-2", buffer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	coordinator.Watch(ctx)

	cancel()
	<-coordinator.Done()

	assert.True(t, coordinator.Signaled())
	assert.True(t, coordinator.CancelledByUser())
	assert.True(t, buffer.Closed())

	coordinator.Close()
}

func TestCoordinatorCountTriggerBeatsLateExternalCancel(t *testing.T) {

	channel := newFakeChannel()
	buffer := rtr.NewDeliveryBuffer(10, 5*time.Millisecond)
	coordinator := rtr.NewCancellationCoordinator(channel, "tag-3", buffer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	coordinator.Watch(ctx)

	coordinator.Shutdown(false)
	cancel() // external cancel after the internal trigger already fired

	coordinator.Close()
	assert.False(t, coordinator.CancelledByUser())
}

func TestCoordinatorCloseWithoutTrigger(t *testing.T) {

	channel := newFakeChannel()
	buffer := rtr.NewDeliveryBuffer(10, 5*time.Millisecond)
	coordinator := rtr.NewCancellationCoordinator(channel, "tag-4", buffer, nil)
	coordinator.Watch(context.Background())

	coordinator.Close()

	assert.False(t, coordinator.Signaled())
	assert.False(t, channel.wasCancelled())
	assert.Equal(t, rtr.StateClosed, coordinator.State())
}
