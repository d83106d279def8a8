package model

import "github.com/google/uuid"

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&Machine{},
		&Service{},
		&Payment{},
		&Log{},
		&SystemAlert{},
		&BillConfig{},
		&CatalogHistory{},
		&PushSubscription{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
