package config

// External service endpoints. Both have public defaults so a dev instance
// works without any configuration; production deployments should point these
// at self-hosted instances.

// OSRMBaseURL returns the base URL of the directions service.
func OSRMBaseURL() string {
	return GetEnv("OSRM_URL", "https://router.project-osrm.org")
}

// NominatimBaseURL returns the base URL of the geocoding service.
func NominatimBaseURL() string {
	return GetEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
}
