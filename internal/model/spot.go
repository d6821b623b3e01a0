package model

import "time"

// Spot represents a rentable parking spot registered by the registry
// owner.  ID, Location and PricePerHour never change after creation;
// IsAvailable and Renter flip together on every reserve/release.
//
// Fields:
//  ID           – caller-assigned unique identifier (never zero).
//  Location     – free-text label shown to renters.
//  PricePerHour – price in the smallest currency unit.
//  IsAvailable  – true when the spot can be reserved.
//  Renter       – identity holding the spot (NoRenter when available).
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last reserve/release timestamp.
type Spot struct {
	ID           uint64    // spots.id
	Location     string    // spots.location
	PricePerHour uint64    // spots.price_per_hour
	IsAvailable  bool      // spots.is_available
	Renter       Identity  // spots.renter
	CreatedAt    time.Time // spots.created_at
	UpdatedAt    time.Time // spots.updated_at
}

// Reserved reports whether the spot is currently held by someone.
func (s Spot) Reserved() bool { return !s.IsAvailable }

// HeldBy reports whether the spot is currently held by caller.  An
// empty caller never holds anything.
func (s Spot) HeldBy(caller Identity) bool {
	return !caller.IsEmpty() && !s.IsAvailable && s.Renter == caller
}
