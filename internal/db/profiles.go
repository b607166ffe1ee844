package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

// Farmer profiles are documents; they are kept as JSON in a text column.

func (db *DB) GetFarmerProfile(ctx context.Context, farmerID uuid.UUID) (*types.FarmerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	var doc string

	start := time.Now()
	err := db.Meta.Query(`
SELECT profile FROM farmer_profiles WHERE farmer_id = ?
`, gocql.UUID(farmerID)).WithContext(ctx).Scan(&doc)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get farmer profile: %w", err)
	}
	observeRead("get_profile", start)

	var p types.FarmerProfile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("invalid farmer profile %s: %w", farmerID, err)
	}
	p.FarmerID = farmerID

	return &p, nil
}

func (db *DB) PutFarmerProfile(ctx context.Context, p types.FarmerProfile) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode farmer profile: %w", err)
	}

	start := time.Now()
	err = db.Meta.Query(`
INSERT INTO farmer_profiles (farmer_id, profile, updated_at) VALUES (?, ?, ?)
`, gocql.UUID(p.FarmerID), string(doc), time.Now().UTC()).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to store farmer profile: %w", err)
	}
	observeWrite("put_profile", start)

	return nil
}

// Locations lists the distinct farm and plot coordinates of every farmer
// profile. The weather refresher keeps these warm.
func (db *DB) Locations(ctx context.Context) ([]types.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	iter := db.Meta.Query(`SELECT profile FROM farmer_profiles`).WithContext(ctx).PageSize(500).Iter()

	var (
		doc  string
		docs []string
	)
	for iter.Scan(&doc) {
		docs = append(docs, doc)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list farmer profiles: %w", err)
	}
	observeRead("list_locations", start)

	return profileLocations(docs), nil
}

func profileLocations(docs []string) []types.Location {
	seen := make(map[types.Location]bool)
	var out []types.Location
	add := func(l *types.Location) {
		if l == nil || seen[*l] {
			return
		}
		seen[*l] = true
		out = append(out, *l)
	}
	for _, doc := range docs {
		var p types.FarmerProfile
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			continue
		}
		add(p.Location)
		for _, plot := range p.Plots {
			add(plot.Coordinates)
		}
	}
	return out
}
