package models

// Billable is implemented by any persisted entity that can act as a gateway
// customer. Implementations must be gorm models passed by pointer, since the
// billing layer saves them after the customer id changes.
type Billable interface {
	GetID() uint
	GetEmail() string
	GetGatewayCustomerID() string
	SetGatewayCustomerID(id string)
}
