package pathsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_FlagAbsent(t *testing.T) {
	template := "/data/$JOBID/monthly/chl.nc"
	got := Resolve(template, "scenario", "historical")
	assert.Equal(t, template, got, "template without the flag must come back unchanged")
}

func TestResolve_ReplacesAllOccurrences(t *testing.T) {
	template := "/data/$JOBID/$JOBIDo_1y_*_grid_T.nc"
	got := Resolve(template, "jobID", "u-ab671")
	assert.Equal(t, "/data/u-ab671/u-ab671o_1y_*_grid_T.nc", got)
}

func TestResolve_FlagNameUpperCased(t *testing.T) {
	got := Resolve("$BASEDIR_OBS/WOA/annual", "basedir_obs", "/obs")
	assert.Equal(t, "/obs/WOA/annual", got)
}

func TestResolve_NoOtherCharactersAltered(t *testing.T) {
	template := "prefix-$YEAR-suffix/$YEAR.nc"
	got := Resolve(template, "year", "1976")
	assert.Equal(t, "prefix-1976-suffix/1976.nc", got)
}

func TestResolve_EmptyTemplate(t *testing.T) {
	assert.Equal(t, "", Resolve("", "jobID", "u-ab671"))
}
