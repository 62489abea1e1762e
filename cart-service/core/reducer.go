package core

// Action is a cart mutation. The concrete types below are the only
// implementations.
type Action interface {
	apply(items []CartLine) []CartLine
}

// AddItem appends Line, or adds its quantity to the existing line with
// the same id. The existing line keeps its price and option snapshot.
type AddItem struct {
	Line CartLine
}

// RemoveItem drops the line with ID. Absent ids are a no-op.
type RemoveItem struct {
	ID string
}

// UpdateQuantity sets the line's quantity. Quantity <= 0 removes the line;
// absent ids are a no-op.
type UpdateQuantity struct {
	ID       string
	Quantity int
}

type ClearCart struct{}

// Reduce returns the state after action. state is never modified.
func Reduce(state CartState, action Action) CartState {
	items := make([]CartLine, len(state.Items))
	copy(items, state.Items)
	return withItems(action.apply(items))
}

func (a AddItem) apply(items []CartLine) []CartLine {
	if a.Line.ID == "" || a.Line.Quantity < 1 {
		return items
	}
	for i := range items {
		if items[i].ID == a.Line.ID {
			items[i].Quantity += a.Line.Quantity
			return items
		}
	}
	return append(items, a.Line)
}

func (a RemoveItem) apply(items []CartLine) []CartLine {
	for i := range items {
		if items[i].ID == a.ID {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}

func (a UpdateQuantity) apply(items []CartLine) []CartLine {
	if a.Quantity <= 0 {
		return RemoveItem{ID: a.ID}.apply(items)
	}
	for i := range items {
		if items[i].ID == a.ID {
			items[i].Quantity = a.Quantity
			break
		}
	}
	return items
}

func (ClearCart) apply([]CartLine) []CartLine {
	return []CartLine{}
}
