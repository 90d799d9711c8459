package profile

// DemoProfiles seeds the in-memory store when the service runs without a
// database, and backs the demo login.
func DemoProfiles() []Profile {
	return []Profile{
		{
			ID:                 "demo-client-1",
			Role:               RoleClient,
			Email:              "john.doe@example.com",
			FirstName:          "John",
			LastName:           "Doe",
			DisplayName:        "John Doe",
			Phone:              "+91 98765 43210",
			Location:           "Mumbai, Maharashtra",
			Dob:                "1985-06-15",
			Bio:                "Food enthusiast looking for chefs to cook at home.",
			ProfileImagePath:   "/placeholder-user.jpg",
			FavoriteCuisines:   "North Indian, Thai",
			CookingSkillLevel:  "beginner",
			DietaryPreferences: "none",
		},
		{
			ID:                 "demo-client-2",
			Role:               RoleClient,
			Email:              "priya.sharma@example.com",
			FirstName:          "Priya",
			LastName:           "Sharma",
			DisplayName:        "Priya Sharma",
			Phone:              "+91 87654 32109",
			Location:           "Delhi, NCR",
			Dob:                "1990-03-22",
			Bio:                "Hosts dinner parties, loves North Indian and Continental food.",
			ProfileImagePath:   "/happy-indian-working-mother-testimonial.jpg",
			DietaryPreferences: "vegetarian",
			Allergies:          "peanuts",
		},
		{
			ID:               "demo-client-3",
			Role:             RoleClient,
			Email:            "raj.patel@example.com",
			FirstName:        "Raj",
			LastName:         "Patel",
			DisplayName:      "Raj Patel",
			Phone:            "+91 76543 21098",
			Location:         "Bangalore, Karnataka",
			Dob:              "1988-11-08",
			Bio:              "Into regional Indian cuisines and always up for new dishes.",
			ProfileImagePath: "/indian-tech-professional.jpg",
		},
		{
			ID:               "demo-chef-1",
			Role:             RoleChef,
			Email:            "chef.arun@example.com",
			FirstName:        "Arun",
			LastName:         "Kumar",
			DisplayName:      "Chef Arun Kumar",
			Phone:            "+91 65432 10987",
			Location:         "Mumbai, Maharashtra",
			Dob:              "1982-04-12",
			Bio:              "North Indian and Mughlai cuisine, traditional tandoor cooking.",
			ProfileImagePath: "/professional-indian-male-chef-in-white-uniform-coo.jpg",
			Experience:       "10+ years",
			Specialties:      []string{"North Indian", "Mughlai", "Tandoor"},
			HourlyRate:       1800,
			Availability:     "weekends",
		},
		{
			ID:               "demo-chef-2",
			Role:             RoleChef,
			Email:            "chef.meera@example.com",
			FirstName:        "Meera",
			LastName:         "Singh",
			DisplayName:      "Chef Meera Singh",
			Phone:            "+91 54321 09876",
			Location:         "Delhi, NCR",
			Dob:              "1987-09-25",
			Bio:              "Healthy Indian cuisine and continental dishes.",
			ProfileImagePath: "/professional-indian-female-chef-smiling-in-kitchen.jpg",
			Experience:       "8 years",
			Specialties:      []string{"Healthy", "Continental"},
			HourlyRate:       1500,
			Certifications:   "Certified nutritionist",
		},
		{
			ID:               "demo-chef-3",
			Role:             RoleChef,
			Email:            "chef.giuseppe@example.com",
			FirstName:        "Giuseppe",
			LastName:         "Romano",
			DisplayName:      "Chef Giuseppe Romano",
			Phone:            "+91 43210 98765",
			Location:         "Bangalore, Karnataka",
			Dob:              "1985-07-30",
			Bio:              "Mediterranean flavours: pasta, risotto and classic Italian technique.",
			ProfileImagePath: "/professional-italian-chef.jpg",
			Experience:       "12 years",
			Specialties:      []string{"Italian", "Mediterranean"},
			HourlyRate:       2000,
		},
	}
}

// DemoProfile looks up a seeded profile by id.
func DemoProfile(id string) (Profile, bool) {
	for _, p := range DemoProfiles() {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}
