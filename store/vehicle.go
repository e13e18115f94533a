// Package store holds the read-through accessors for the relational
// store (VehicleStore / UserStore).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/autofi/ai-engine/caching"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Vehicle is the immutable catalog entry described in the data model.
type Vehicle struct {
	ID             int64   `json:"id"`
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	Year           int     `json:"year"`
	Price          float64 `json:"price"`
	Mileage        int     `json:"mileage"`
	Color          string  `json:"color"`
	FuelType       string  `json:"fuel_type"`
	Transmission   string  `json:"transmission"`
	Status         string  `json:"status"`
	Horsepower     float64 `json:"horsepower,omitempty"`
	TorqueFtLbs    float64 `json:"torque_ft_lbs,omitempty"`
	EngineSize     float64 `json:"engine_size,omitempty"`
	CityMPG        float64 `json:"city_mpg,omitempty"`
	CO2Emissions   float64 `json:"co2_emissions,omitempty"`
	ZeroTo60MPH    float64 `json:"zero_to_60_mph,omitempty"`
	DrivetrainType string  `json:"drivetrain_type,omitempty"`
}

// carFeature is the shape of one entry in the static car-features.json
// file keyed by (make, model, year).
type carFeature struct {
	Make     string `json:"make"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	Features struct {
		Engine struct {
			Horsepower  float64 `json:"horsepower"`
			TorqueFtLBS float64 `json:"torqueFtLBS"`
			Size        float64 `json:"size"`
		} `json:"engine"`
		FuelEconomy struct {
			CityMPG      float64 `json:"cityMPG"`
			CO2Emissions float64 `json:"CO2Emissions"`
		} `json:"fuelEconomy"`
		Performance struct {
			ZeroTo60MPH float64 `json:"ZeroTo60MPH"`
		} `json:"performance"`
		Drivetrain struct {
			Type string `json:"type"`
		} `json:"drivetrain"`
	} `json:"features"`
}

type featureKey struct {
	make  string
	model string
	year  int
}

// VehicleStore loads the catalog once (external cache, then authoritative
// store), enriches it from the static features file, and serves O(1)
// in-memory lookups thereafter.
type VehicleStore struct {
	pool             *pgxpool.Pool
	cache            *caching.Facade
	vehicleLimit     int
	featuresJSONPath string

	mu     sync.Mutex
	loaded bool
	byID   map[int64]Vehicle
}

// NewVehicleStore constructs a store. featuresJSONPath points at
// car-features.json; vehicleLimit bounds the authoritative-store query.
func NewVehicleStore(pool *pgxpool.Pool, cache *caching.Facade, featuresJSONPath string, vehicleLimit int) *VehicleStore {
	if vehicleLimit <= 0 {
		vehicleLimit = 20000
	}
	return &VehicleStore{
		pool:             pool,
		cache:            cache,
		vehicleLimit:     vehicleLimit,
		featuresJSONPath: featuresJSONPath,
		byID:             make(map[int64]Vehicle),
	}
}

// ensureLoaded performs the one-time load under a mutex; the first caller
// absorbs the cost and subsequent callers see the fully populated map.
func (s *VehicleStore) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	var vehicles []Vehicle
	if s.cache != nil && s.cache.GetVehicleFeatures(ctx, &vehicles) {
		s.index(vehicles)
		s.loaded = true
		return nil
	}

	vehicles, err := s.queryVehicles(ctx)
	if err != nil {
		return fmt.Errorf("load vehicles: %w", err)
	}

	features, err := s.loadCarFeatures()
	if err != nil {
		// Enrichment is best-effort: a missing or malformed static file
		// must not prevent the catalog itself from loading.
		features = nil
	}
	enrich(vehicles, features)

	s.index(vehicles)
	s.loaded = true

	if s.cache != nil {
		s.cache.SetVehicleFeatures(ctx, vehicles)
	}
	return nil
}

func (s *VehicleStore) index(vehicles []Vehicle) {
	s.byID = make(map[int64]Vehicle, len(vehicles))
	for _, v := range vehicles {
		s.byID[v.ID] = v
	}
}

func (s *VehicleStore) queryVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := s.pool.Query(ctx, `SELECT "Id","Make","Model","Year","Price","Mileage","Color","FuelType","Transmission","Status" FROM "Vehicles" ORDER BY "Id" LIMIT $1`, s.vehicleLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.Price, &v.Mileage, &v.Color, &v.FuelType, &v.Transmission, &v.Status); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *VehicleStore) loadCarFeatures() (map[featureKey]carFeature, error) {
	raw, err := os.ReadFile(s.featuresJSONPath)
	if err != nil {
		return nil, err
	}
	var list []carFeature
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	out := make(map[featureKey]carFeature, len(list))
	for _, f := range list {
		out[featureKey{f.Make, f.Model, f.Year}] = f
	}
	return out, nil
}

func enrich(vehicles []Vehicle, features map[featureKey]carFeature) {
	if features == nil {
		return
	}
	for i := range vehicles {
		v := &vehicles[i]
		f, ok := features[featureKey{v.Make, v.Model, v.Year}]
		if !ok {
			continue
		}
		v.Horsepower = f.Features.Engine.Horsepower
		v.TorqueFtLbs = f.Features.Engine.TorqueFtLBS
		v.EngineSize = f.Features.Engine.Size
		v.CityMPG = f.Features.FuelEconomy.CityMPG
		v.CO2Emissions = f.Features.FuelEconomy.CO2Emissions
		v.ZeroTo60MPH = f.Features.Performance.ZeroTo60MPH
		v.DrivetrainType = f.Features.Drivetrain.Type
	}
}

// GetByID is an O(1) lookup into the in-memory catalog. The second
// return value is false if the vehicle is unknown.
func (s *VehicleStore) GetByID(ctx context.Context, id int64) (Vehicle, bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Vehicle{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	return v, ok, nil
}

// Exists reports whether a vehicle id is present in the catalog.
func (s *VehicleStore) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok, err := s.GetByID(ctx, id)
	return ok, err
}

// Seed injects a vehicle directly into the in-memory index and marks the
// store as loaded, bypassing the DB/cache load path. For tests only.
func (s *VehicleStore) Seed(v Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	if s.byID == nil {
		s.byID = make(map[int64]Vehicle)
	}
	s.byID[v.ID] = v
}
