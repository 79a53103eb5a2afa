// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checkin

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserRef identifies a person in a payload: the ticket owner or the
// staff member who handled a check-in.
//
// The API sends either a bare id string or a populated object
// depending on the endpoint, so decoding accepts both forms:
//
//	"user": "6651f0c2"
//	"user": {"_id": "6651f0c2", "name": "Ana Ruiz", "email": "ana@uni.edu"}
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsZero reports whether no user is referenced.
func (u UserRef) IsZero() bool { return u == UserRef{} }

// Display returns the best human-readable label available.
func (u UserRef) Display() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	}
	return u.ID
}

// UnmarshalJSON implements json.Unmarshaler for both payload forms.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = UserRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*u = UserRef{ID: id}
		return nil
	}

	var object struct {
		ID       string `json:"id"`
		MongoID  string `json:"_id"`
		Name     string `json:"name"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("user reference: %w", err)
	}
	*u = UserRef{ID: object.ID, Name: object.Name, Email: object.Email}
	if u.ID == "" {
		u.ID = object.MongoID
	}
	if u.Name == "" {
		u.Name = object.FullName
	}
	return nil
}
