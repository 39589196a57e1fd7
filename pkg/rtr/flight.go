package rtr

import (
	"strconv"

	cmap "github.com/orcaman/concurrent-map"
)

// FlightTracker tracks deliveries accepted into the pipeline that have not
// had an acknowledgement issued yet. The DeliveryBridge tracks, the
// AckDispatcher settles; whatever remains at shutdown is unacknowledged and
// will be redelivered by the broker after the channel closes.
type FlightTracker struct {
	flights cmap.ConcurrentMap
}

// NewFlightTracker creates an empty FlightTracker.
func NewFlightTracker() *FlightTracker {
	return &FlightTracker{flights: cmap.New()}
}

// Track registers a message as in-flight by its delivery tag.
func (ft *FlightTracker) Track(msg *DeliveredMessage) {
	ft.flights.Set(flightKey(msg.DeliveryTag), msg)
}

// Settle concludes the flight for a delivery tag once its acknowledgement
// has been issued (or attempted).
func (ft *FlightTracker) Settle(deliveryTag uint64) {
	ft.flights.Remove(flightKey(deliveryTag))
}

// Remaining counts the deliveries still in-flight.
func (ft *FlightTracker) Remaining() int {
	return ft.flights.Count()
}

func flightKey(deliveryTag uint64) string {
	return strconv.FormatUint(deliveryTag, 10)
}
