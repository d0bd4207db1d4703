package assemble

import "github.com/oceanbgc/marineval/internal/keyspec"

// Fixed coordinate maps for the legacy catalogue. Each data provider uses
// its own dimension names, so these are per-source constants rather than
// guessed from the files.

func medusaCoords() keyspec.Coords {
	return keyspec.Coords{
		T: "time_counter", Z: "deptht", Lat: "nav_lat", Lon: "nav_lon",
		Cal: "360_day", TDict: keyspec.DefaultTDict(),
	}
}

func woaCoords() keyspec.Coords {
	return keyspec.Coords{
		T: "index_t", Z: "depth", Lat: "lat", Lon: "lon",
		Cal: "standard", TDict: keyspec.DefaultTDict(),
	}
}

func maredatCoords() keyspec.Coords {
	return keyspec.Coords{
		T: "index_t", Z: "DEPTH", Lat: "LATITUDE", Lon: "LONGITUDE",
		Cal: "standard", TDict: keyspec.DefaultTDict(),
	}
}

func cciCoords() keyspec.Coords {
	return keyspec.Coords{
		T: "index_t", Z: "index_z", Lat: "lat", Lon: "lon",
		Cal: "standard", TDict: keyspec.DefaultTDict(),
	}
}
