package store

import (
	"os"
	"path/filepath"
	"testing"
)

const featuresFixture = `[
  {
    "make": "Toyota",
    "model": "Camry",
    "year": 2020,
    "features": {
      "engine": {"horsepower": 203, "torqueFtLBS": 184, "size": 2.5},
      "fuelEconomy": {"cityMPG": 28, "CO2Emissions": 310},
      "performance": {"ZeroTo60MPH": 7.6},
      "drivetrain": {"type": "FWD"}
    }
  }
]`

func writeFeaturesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "car-features.json")
	if err := os.WriteFile(path, []byte(featuresFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadCarFeaturesKeysByMakeModelYear(t *testing.T) {
	s := NewVehicleStore(nil, nil, writeFeaturesFile(t), 0)
	features, err := s.loadCarFeatures()
	if err != nil {
		t.Fatalf("loadCarFeatures: %v", err)
	}
	f, ok := features[featureKey{"Toyota", "Camry", 2020}]
	if !ok {
		t.Fatalf("expected a (Toyota, Camry, 2020) entry, got keys %v", features)
	}
	if f.Features.Engine.Horsepower != 203 {
		t.Fatalf("expected horsepower 203, got %v", f.Features.Engine.Horsepower)
	}
}

func TestEnrichJoinsStaticSpecs(t *testing.T) {
	s := NewVehicleStore(nil, nil, writeFeaturesFile(t), 0)
	features, err := s.loadCarFeatures()
	if err != nil {
		t.Fatalf("loadCarFeatures: %v", err)
	}

	vehicles := []Vehicle{
		{ID: 1, Make: "Toyota", Model: "Camry", Year: 2020},
		{ID: 2, Make: "Honda", Model: "Civic", Year: 2019},
	}
	enrich(vehicles, features)

	if vehicles[0].Horsepower != 203 || vehicles[0].DrivetrainType != "FWD" || vehicles[0].ZeroTo60MPH != 7.6 {
		t.Fatalf("expected matched vehicle to be enriched, got %+v", vehicles[0])
	}
	if vehicles[1].Horsepower != 0 || vehicles[1].DrivetrainType != "" {
		t.Fatalf("expected unmatched vehicle to stay bare, got %+v", vehicles[1])
	}
}

func TestEnrichSkipsNilFeatureMap(t *testing.T) {
	vehicles := []Vehicle{{ID: 1, Make: "Toyota", Model: "Camry", Year: 2020}}
	enrich(vehicles, nil)
	if vehicles[0].Horsepower != 0 {
		t.Fatalf("expected no enrichment without a feature map, got %+v", vehicles[0])
	}
}

func TestInteractionWeights(t *testing.T) {
	if interactionWeights["contacted_seller"] <= interactionWeights["view"] {
		t.Fatalf("expected contacting a seller to outweigh a view")
	}
	for _, typ := range []string{"view", "share", "favorite_added", "contacted_seller"} {
		if interactionWeights[typ] <= 0 {
			t.Fatalf("expected a positive weight for %q", typ)
		}
	}
}
