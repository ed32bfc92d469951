package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/flexspace/internal/application"
	"github.com/example/flexspace/internal/persistence"
)

type seedUser struct {
	email     string
	password  string
	firstName string
	lastName  string
	role      application.Role
}

var demoUsers = []seedUser{
	{email: "admin@flexspace.com", password: "Admin123!", firstName: "Admin", lastName: "User", role: application.RoleAdmin},
	{email: "manager@flexspace.com", password: "Manager123!", firstName: "Manager", lastName: "Smith", role: application.RoleManager},
	{email: "employee@flexspace.com", password: "Employee123!", firstName: "John", lastName: "Doe", role: application.RoleEmployee},
}

type seedSpace struct {
	name      string
	spaceType application.SpaceType
	capacity  int
	floor     string
	building  string
	openTime  string
	closeTime string
}

var demoSpaces = []seedSpace{
	{name: "Open Space Desk 1", spaceType: application.SpaceTypeDesk, capacity: 1, floor: "2", building: "A", openTime: "08:00", closeTime: "20:00"},
	{name: "Open Space Desk 2", spaceType: application.SpaceTypeDesk, capacity: 1, floor: "2", building: "A", openTime: "08:00", closeTime: "20:00"},
	{name: "Zeus Room", spaceType: application.SpaceTypeMeetingRoom, capacity: 10, floor: "3", building: "B", openTime: "08:00", closeTime: "20:00"},
	{name: "Athena Room", spaceType: application.SpaceTypeMeetingRoom, capacity: 8, floor: "3", building: "B", openTime: "08:00", closeTime: "20:00"},
	{name: "Innovation Hub", spaceType: application.SpaceTypeCollaborative, capacity: 6, floor: "1", building: "A", openTime: "08:00", closeTime: "20:00"},
	{name: "Creative Corner", spaceType: application.SpaceTypeCollaborative, capacity: 4, floor: "1", building: "C", openTime: "08:00", closeTime: "18:00"},
}

type seedRepositories struct {
	users  persistence.UserRepository
	spaces persistence.SpaceRepository
}

// seedDemoData inserts the demo accounts and spaces that are not present yet.
// Existing rows, matched by email or name, are left untouched.
func seedDemoData(ctx context.Context, repos seedRepositories, hash application.PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) (created int, err error) {
	if hash == nil {
		hash = application.HashPassword
	}

	for _, u := range demoUsers {
		_, err := repos.users.GetUserByEmail(ctx, u.email)
		if err == nil {
			continue
		}
		if !errors.Is(err, persistence.ErrNotFound) {
			return created, fmt.Errorf("look up user %s: %w", u.email, err)
		}

		passwordHash, err := hash(u.password)
		if err != nil {
			return created, fmt.Errorf("hash password for %s: %w", u.email, err)
		}
		ts := now().UTC()
		if err := repos.users.CreateUser(ctx, persistence.User{
			ID:           idGenerator(),
			Email:        u.email,
			PasswordHash: passwordHash,
			FirstName:    u.firstName,
			LastName:     u.lastName,
			Role:         string(u.role),
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}); err != nil {
			return created, fmt.Errorf("create user %s: %w", u.email, err)
		}
		created++
		logger.InfoContext(ctx, "seeded user", "email", u.email, "role", u.role)
	}

	for _, s := range demoSpaces {
		_, err := repos.spaces.GetSpaceByName(ctx, s.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, persistence.ErrNotFound) {
			return created, fmt.Errorf("look up space %s: %w", s.name, err)
		}

		floor, building := s.floor, s.building
		ts := now().UTC()
		if err := repos.spaces.CreateSpace(ctx, persistence.Space{
			ID:        idGenerator(),
			Name:      s.name,
			Type:      string(s.spaceType),
			Capacity:  s.capacity,
			Floor:     &floor,
			Building:  &building,
			OpenTime:  s.openTime,
			CloseTime: s.closeTime,
			IsActive:  true,
			CreatedAt: ts,
			UpdatedAt: ts,
		}); err != nil {
			return created, fmt.Errorf("create space %s: %w", s.name, err)
		}
		created++
		logger.InfoContext(ctx, "seeded space", "name", s.name, "type", s.spaceType)
	}

	return created, nil
}
