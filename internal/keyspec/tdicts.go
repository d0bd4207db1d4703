package keyspec

import "fmt"

// Time-decoding tables translate the time index stored in a file into a
// calendar month index. Model output counts months from zero; several
// climatology products count from one.
var tdicts = map[string]map[int]int{
	"ZeroToZero": monthTable(0),
	"OneToZero":  monthTable(1),
}

func monthTable(offset int) map[int]int {
	table := make(map[int]int, 12)
	for month := 0; month < 12; month++ {
		table[month+offset] = month
	}
	return table
}

// TDict returns the named time-decoding table. An empty name selects the
// zero-based identity table; any other unknown name is an error, so a
// typo in a key file fails the load rather than silently decoding wrong.
func TDict(name string) (map[int]int, error) {
	if name == "" {
		name = "ZeroToZero"
	}
	table, ok := tdicts[name]
	if !ok {
		return nil, fmt.Errorf("unknown tdict %s", name)
	}
	return table, nil
}

// DefaultTDict is the zero-based identity table used for model output.
func DefaultTDict() map[int]int {
	return tdicts["ZeroToZero"]
}
