package catalogfile

import "github.com/mergington/activities-api/internal/domain"

// Default returns the built-in Mergington High School catalog, provisioned when no
// catalog file is configured. Each call returns fresh slices.
func Default() []domain.Activity {
	return []domain.Activity{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []domain.ParticipantID{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []domain.ParticipantID{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		{
			Name:            "Gym Class",
			Description:     "Physical education and sports activities",
			Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
			MaxParticipants: 30,
			Participants:    []domain.ParticipantID{"john@mergington.edu", "olivia@mergington.edu"},
		},
		{
			Name:            "Soccer Club",
			Description:     "Outdoor soccer practices and weekend matches against other schools",
			Schedule:        "Tuesdays and Thursdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 22,
			Participants:    []domain.ParticipantID{"alex@mergington.edu", "chris@mergington.edu"},
		},
		{
			Name:            "Basketball Team",
			Description:     "Competitive basketball team with regular practices and league play",
			Schedule:        "Mondays, Wednesdays, 5:00 PM - 7:00 PM",
			MaxParticipants: 15,
			Participants:    []domain.ParticipantID{"nina@mergington.edu", "leo@mergington.edu"},
		},
		{
			Name:            "Art Club",
			Description:     "Explore drawing, painting, and mixed media projects",
			Schedule:        "Wednesdays, 3:30 PM - 5:00 PM",
			MaxParticipants: 18,
			Participants:    []domain.ParticipantID{"maya@mergington.edu", "liam@mergington.edu"},
		},
		{
			Name:            "Drama Club",
			Description:     "Acting, play production, and stagecraft for school performances",
			Schedule:        "Fridays, 4:00 PM - 6:00 PM",
			MaxParticipants: 25,
			Participants:    []domain.ParticipantID{"zoe@mergington.edu", "ethan@mergington.edu"},
		},
		{
			Name:            "Debate Team",
			Description:     "Develop public speaking and argumentation skills; compete in debate tournaments",
			Schedule:        "Thursdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 16,
			Participants:    []domain.ParticipantID{"rachel@mergington.edu", "sam@mergington.edu"},
		},
		{
			Name:            "Science Club",
			Description:     "Hands-on experiments and science fairs, and STEM projects",
			Schedule:        "Tuesdays, 3:45 PM - 5:15 PM",
			MaxParticipants: 20,
			Participants:    []domain.ParticipantID{"oliver@mergington.edu", "ava@mergington.edu"},
		},
	}
}
