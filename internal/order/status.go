package order

type Status string

const (
	StatusPlaced    Status = "Order Placed"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

type Actor int

const (
	ActorCustomer Actor = iota
	ActorOperator
)

type edge struct {
	from, to Status
}

// transitions lists who may move an order along each edge. Anything not
// listed, including every edge out of Delivered or Cancelled, is illegal.
var transitions = map[edge][]Actor{
	{StatusPlaced, StatusCancelled}:  {ActorCustomer, ActorOperator},
	{StatusPlaced, StatusDelivered}:  {ActorOperator},
	{StatusShipped, StatusCancelled}: {ActorOperator},
	{StatusShipped, StatusDelivered}: {ActorOperator},
}

func CanTransition(from, to Status, actor Actor) bool {
	for _, a := range transitions[edge{from, to}] {
		if a == actor {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}
