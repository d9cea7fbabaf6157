package model

import "github.com/google/uuid"

// assignID gives a new row its primary key before insert. Keys are generated
// in-process so every supported dialect behaves the same.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
