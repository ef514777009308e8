package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CategoryState struct {
	Name        string
	Slug        string
	Description string
	ParentID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category groups products. Categories may nest through ParentID.
type Category struct {
	AggregateBase
	state CategoryState
}

func NewCategory(name, slug, description, parentID string) (*Category, error) {
	const op = "entity.NewCategory"
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" {
		return nil, NewError(CodeValidation, op, "name is required", nil)
	}
	if !slugPattern.MatchString(slug) {
		return nil, Errorf(CodeValidation, op, "invalid slug %q", slug)
	}

	at := now()
	c := &Category{
		AggregateBase: AggregateBase{ID: uuid.NewString()},
		state: CategoryState{
			Name:        name,
			Slug:        slug,
			Description: strings.TrimSpace(description),
			ParentID:    parentID,
			CreatedAt:   at,
			UpdatedAt:   at,
		},
	}
	if c.ParentIsSelf() {
		return nil, NewError(CodeValidation, op, "category cannot be its own parent", nil)
	}
	if err := c.raise(CategoryAggregateType, CategoryCreated{CategoryID: c.ID, Name: name, Slug: slug, ParentID: parentID}); err != nil {
		return nil, err
	}
	return c, nil
}

func RestoreCategory(id string, version int, state CategoryState) *Category {
	return &Category{AggregateBase: AggregateBase{ID: id, Version: version}, state: state}
}

func (c *Category) AggregateType() string { return CategoryAggregateType }
func (c *Category) Equals(other Aggregate) bool { return SameAggregate(c, other) }
func (c *Category) State() CategoryState { return c.state }
func (c *Category) ParentIsSelf() bool { return c.state.ParentID != "" && c.state.ParentID == c.ID }

func (c *Category) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewError(CodeValidation, "entity.Category.Rename", "name is required", nil)
	}
	return c.update(func(s *CategoryState) { s.Name = name })
}

func (c *Category) UpdateDescription(description string) error {
	description = strings.TrimSpace(description)
	return c.update(func(s *CategoryState) { s.Description = description })
}

func (c *Category) update(mutate func(*CategoryState)) error {
	next := c.state
	mutate(&next)
	if next.Name == c.state.Name && next.Description == c.state.Description {
		return nil
	}
	next.UpdatedAt = now()
	if err := c.raise(CategoryAggregateType, CategoryUpdated{CategoryID: c.ID, Name: next.Name, Description: next.Description}); err != nil {
		return err
	}
	c.state = next
	return nil
}
