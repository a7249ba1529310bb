package store

import "time"

// catalogEpoch is the creation time recorded for the built-in catalog.
var catalogEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultCatalog returns the built-in achievements.
// The Postgres migration seeds the same rows with the same ids.
func DefaultCatalog() []*Achievement {
	return []*Achievement{
		{
			ID:          "00000000-0000-4000-8000-000000000001",
			Name:        "First Step",
			Description: "Signed up for the messenger",
			Image:       "first-step.png",
			Type:        TypeAchievement,
			Level:       1,
			Active:      true,
			CreatedAt:   catalogEpoch,
		},
		{
			ID:          "00000000-0000-4000-8000-000000000002",
			Name:        "Social",
			Description: "Added a first friend",
			Image:       "social.png",
			Type:        TypeAchievement,
			Level:       1,
			Active:      true,
			CreatedAt:   catalogEpoch,
		},
		{
			ID:          "00000000-0000-4000-8000-000000000003",
			Name:        "Communicator",
			Description: "Sent a first message",
			Image:       "communicator.png",
			Type:        TypeAchievement,
			Level:       1,
			Active:      true,
			CreatedAt:   catalogEpoch,
		},
		{
			ID:          "00000000-0000-4000-8000-000000000004",
			Name:        "Personalizer",
			Description: "Customized the profile",
			Image:       "personalizer.png",
			Type:        TypeBadge,
			Level:       1,
			Active:      true,
			CreatedAt:   catalogEpoch,
		},
	}
}
