package dataset

// Coordinate-variable naming differs between model generations and data
// providers. Candidates are probed in order; the first name present in the
// file wins. Key-file overrides are applied by the caller.
var coordCandidates = map[string][]string{
	"t":   {"time_counter", "time_centered", "time", "index_t", "TIME", "month"},
	"z":   {"deptht", "depth", "depthu", "depthw", "lev", "DEPTH", "index_z"},
	"lat": {"nav_lat", "lat", "latitude", "LATITUDE", "Latitude", "y"},
	"lon": {"nav_lon", "lon", "longitude", "LONGITUDE", "Longitude", "x"},
}

// coordRoles in a stable order, for deterministic logging.
var coordRoles = []string{"t", "z", "lat", "lon"}

// GuessCoords probes the file for the usual coordinate variable names and
// returns a role-to-name mapping. A role with no candidate present maps to
// the empty string, meaning the role does not apply.
func (d *Dataset) GuessCoords() map[string]string {
	coords := guessFromProbe(d.HasVariable)
	// NEMO output on the 360-day model calendar names its time axis
	// time_counter; everything else is treated as a standard calendar.
	if coords["t"] == "time_counter" {
		coords["cal"] = "360_day"
	} else {
		coords["cal"] = "standard"
	}
	return coords
}

// guessFromProbe is the pure core of GuessCoords, split out so the probing
// logic is testable without a NetCDF file on disk.
func guessFromProbe(has func(name string) bool) map[string]string {
	coords := make(map[string]string, len(coordRoles)+1)
	for _, role := range coordRoles {
		coords[role] = ""
		for _, candidate := range coordCandidates[role] {
			if has(candidate) {
				coords[role] = candidate
				break
			}
		}
	}
	return coords
}
