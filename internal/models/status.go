package models

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pendiente"
	OrderProcessing OrderStatus = "Procesando"
	OrderShipped    OrderStatus = "Enviado"
	OrderCompleted  OrderStatus = "Completado"
	OrderCancelled  OrderStatus = "Cancelado"
)

// PaymentStatus is the money state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pendiente"
	PaymentPaid     PaymentStatus = "Pagado"
	PaymentRefunded PaymentStatus = "Reembolsado"
	PaymentFailed   PaymentStatus = "Fallido"
)

type PaymentMethod string

const (
	PaymentPayPal PaymentMethod = "paypal"
	PaymentCash   PaymentMethod = "efectivo"
)

type ShippingMethod string

const (
	ShippingPickup   ShippingMethod = "pickup"
	ShippingDelivery ShippingMethod = "delivery"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderShipped, OrderCompleted, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCompleted, OrderCancelled},
	OrderShipped:    {OrderCompleted},
	OrderCompleted:  {},
	OrderCancelled:  {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid, PaymentFailed},
	PaymentFailed:   {PaymentPaid},
	PaymentPaid:     {PaymentRefunded},
	PaymentRefunded: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo reports whether an order in s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	return m == PaymentPayPal || m == PaymentCash
}

func (m ShippingMethod) Valid() bool {
	return m == ShippingPickup || m == ShippingDelivery
}
