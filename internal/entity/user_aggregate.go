package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

type UserState struct {
	Email          Email
	Name           string
	Role           UserRole
	Addresses      []Address
	DefaultAddress int // index into Addresses, -1 when there is none
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type User struct {
	AggregateBase
	state UserState
}

func NewUser(email Email, name string, role UserRole) (*User, error) {
	const op = "entity.NewUser"
	name = strings.TrimSpace(name)
	if email.String() == "" {
		return nil, NewError(CodeValidation, op, "email is required", nil)
	}
	if name == "" {
		return nil, NewError(CodeValidation, op, "name is required", nil)
	}
	if role == "" {
		role = RoleCustomer
	}
	if role != RoleCustomer && role != RoleAdmin {
		return nil, Errorf(CodeValidation, op, "unknown role %q", role)
	}
	at := now()
	u := &User{
		AggregateBase: AggregateBase{ID: uuid.NewString()},
		state:         UserState{Email: email, Name: name, Role: role, DefaultAddress: -1, CreatedAt: at, UpdatedAt: at},
	}
	if err := u.raise(UserAggregateType, UserRegistered{UserID: u.ID, Email: email.String(), Name: name, Role: role}); err != nil {
		return nil, err
	}
	return u, nil
}

func RestoreUser(id string, version int, state UserState) *User {
	state.Addresses = append([]Address(nil), state.Addresses...)
	return &User{AggregateBase: AggregateBase{ID: id, Version: version}, state: state}
}

func (u *User) AggregateType() string { return UserAggregateType }
func (u *User) Equals(other Aggregate) bool { return SameAggregate(u, other) }
func (u *User) Email() Email { return u.state.Email }
func (u *User) Name() string { return u.state.Name }
func (u *User) Role() UserRole { return u.state.Role }
func (u *User) IsAdmin() bool { return u.state.Role == RoleAdmin }

func (u *User) State() UserState {
	s := u.state
	s.Addresses = append([]Address(nil), u.state.Addresses...)
	return s
}

// DefaultAddress returns the default shipping address, if any.
func (u *User) DefaultAddress() (Address, bool) {
	i := u.state.DefaultAddress
	if i < 0 || i >= len(u.state.Addresses) {
		return Address{}, false
	}
	return u.state.Addresses[i], true
}

func (u *User) UpdateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewError(CodeValidation, "entity.User.UpdateName", "name is required", nil)
	}
	if name == u.state.Name {
		return nil
	}
	next := u.State()
	next.Name = name
	return u.commit(next, UserProfileUpdated{UserID: u.ID, Name: name})
}

func (u *User) PromoteToAdmin() error {
	if u.IsAdmin() {
		return NewError(CodeInvalidStateTransition, "entity.User.PromoteToAdmin", "user is already an admin", nil)
	}
	next := u.State()
	next.Role = RoleAdmin
	return u.commit(next, UserRoleChanged{UserID: u.ID, Role: RoleAdmin})
}

// AddAddress stores addr. The first address always becomes the default.
func (u *User) AddAddress(addr Address, makeDefault bool) error {
	for _, existing := range u.state.Addresses {
		if existing.Equals(addr) {
			return NewError(CodeConflict, "entity.User.AddAddress", "address already on file", nil)
		}
	}
	next := u.State()
	next.Addresses = append(next.Addresses, addr)
	isDefault := makeDefault || next.DefaultAddress < 0
	if isDefault {
		next.DefaultAddress = len(next.Addresses) - 1
	}
	return u.commit(next, UserAddressAdded{UserID: u.ID, Address: addr, IsDefault: isDefault})
}

func (u *User) commit(next UserState, e Event) error {
	if err := u.raise(UserAggregateType, e); err != nil {
		return err
	}
	next.UpdatedAt = now()
	u.state = next
	return nil
}
