package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// User is the application entity that bills against the gateway.
type User struct {
	BaseModel
	Email             string  `json:"email" gorm:"not null;size:255;index"`
	Name              string  `json:"name" gorm:"size:255"`
	GatewayCustomerID *string `json:"gateway_customer_id" gorm:"column:gateway_customer_id;size:100;index"`
}

func (u *User) GetID() uint {
	return u.ID
}

func (u *User) GetEmail() string {
	return u.Email
}

func (u *User) GetGatewayCustomerID() string {
	if u.GatewayCustomerID == nil {
		return ""
	}
	return *u.GatewayCustomerID
}

func (u *User) SetGatewayCustomerID(id string) {
	u.GatewayCustomerID = &id
}
