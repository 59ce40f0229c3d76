package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a random UUID when the caller left the key empty.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// BeforeCreate assigns the primary key.
func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// BeforeCreate assigns the primary key.
func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// BeforeCreate assigns the primary key.
func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// BeforeCreate assigns the primary key.
func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// BeforeCreate assigns the primary key.
func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// BeforeCreate assigns the primary key.
func (e *Event) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// All lists every persisted model, in dependency order, for schema bootstrap
// on sqlite where the Postgres migrations do not apply.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Cart{},
		&Order{},
		&OrderItem{},
		&Event{},
	}
}
