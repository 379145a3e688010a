package batch

import "fmt"

// Order selects which half of a staged lifecycle snapshot is dispatched first.
type Order int

const (
	OrderAddFirst    Order = iota // created before destroyed (default)
	OrderRemoveFirst              // destroyed before created
)

func (o Order) String() string {
	switch o {
	case OrderAddFirst:
		return "add_first"
	case OrderRemoveFirst:
		return "remove_first"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder maps a config value to an Order. The empty string is OrderAddFirst.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "add_first":
		return OrderAddFirst, nil
	case "remove_first":
		return OrderRemoveFirst, nil
	}
	return 0, fmt.Errorf("unknown batch order %q", s)
}

// Policy is fixed when a batch is constructed.
type Policy struct {
	// Owning batches free every removed object once its Destroyed
	// notification has been delivered.
	Owning bool
	Order  Order
	// CollapseTransient drops both notifications for an object that was
	// added and removed inside the same pending window. An owning batch
	// still frees such an object.
	CollapseTransient bool
}
