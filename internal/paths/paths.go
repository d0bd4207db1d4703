// Package paths holds the machine-specific locations of model output,
// observational climatologies and working directories. Everything here is an
// opaque string constant to the rest of the pipeline.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Paths collects every directory the pipeline reads from or writes to.
type Paths struct {
	Machine string `yaml:"machine"`

	// RepoRoot anchors relative paths in key files and conversion
	// descriptors, and contains the key_lists and key_files catalogues.
	RepoRoot string `yaml:"repo_root"`

	// ModelFolderPref is the prefix under which per-job model output lives.
	ModelFolderPref string `yaml:"model_folder"`

	// ObsFolder is the base directory of the observational datasets.
	ObsFolder string `yaml:"obs_folder"`

	// OrcaGridFn is the model mesh/mask file (cell areas, volumes, tmask).
	OrcaGridFn string `yaml:"grid_file"`

	ShelveDir string `yaml:"shelve_dir"`
	ImageDir  string `yaml:"image_dir"`

	// Named observational sub-folders. Derived from ObsFolder when the
	// config file leaves them unset.
	WOAFolder       string `yaml:"woa_folder"`
	WOAFolderAnnual string `yaml:"woa_folder_annual"`
	MAREDATFolder   string `yaml:"maredat_folder"`
	CCIDir          string `yaml:"cci_dir"`
	DMSDir          string `yaml:"dms_dir"`
	GlodapDir       string `yaml:"glodap_dir"`
	GLODAPv2Dir     string `yaml:"glodapv2_dir"`
	TakahashiFolder string `yaml:"takahashi_folder"`
	MLDFolder       string `yaml:"mld_folder"`
}

// Load reads the user configuration file and fills in defaults for any
// field it leaves unset. configFile may be empty, in which case the
// defaults are used as-is.
func Load(configFile string) (*Paths, error) {
	p := defaults()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
		log.Info().Str("config", configFile).Msg("Loaded user path configuration")
	} else {
		log.Info().Msg("No user config file, using default paths")
	}

	p.deriveObsFolders()
	return p, nil
}

func defaults() *Paths {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	root := filepath.Join(home, "marineval_data")
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Paths{
		Machine:         "local",
		RepoRoot:        cwd,
		ModelFolderPref: root,
		ObsFolder:       filepath.Join(root, "obs"),
		OrcaGridFn:      filepath.Join(cwd, "data", "eORCA_masks.nc"),
		ShelveDir:       filepath.Join(root, "shelves"),
		ImageDir:        filepath.Join(root, "images"),
	}
}

// deriveObsFolders fills the named observational sub-folders that the
// config file did not set explicitly.
func (p *Paths) deriveObsFolders() {
	set := func(field *string, parts ...string) {
		if *field == "" {
			*field = filepath.Join(append([]string{p.ObsFolder}, parts...)...)
		}
	}
	set(&p.WOAFolder, "WOA")
	set(&p.WOAFolderAnnual, "WOA", "annual")
	set(&p.MAREDATFolder, "MAREDAT", "MAREDAT")
	set(&p.CCIDir, "CCI")
	set(&p.DMSDir, "DMS_Lana2011nc")
	set(&p.GlodapDir, "GLODAP")
	set(&p.GLODAPv2Dir, "GLODAPv2", "GLODAPv2_Mapped_Climatologies")
	set(&p.TakahashiFolder, "Takahashi2009_pCO2")
	set(&p.MLDFolder, "IFREMER-MLD")
}

// KeyListsDir is where the per-suite key lists live.
func (p *Paths) KeyListsDir() string {
	return filepath.Join(p.RepoRoot, "key_lists")
}

// KeyFilesDir is where the per-key declarative definitions live.
func (p *Paths) KeyFilesDir() string {
	return filepath.Join(p.RepoRoot, "key_files")
}

// Folder joins the given path parts, creates the directory if needed and
// returns it.
func Folder(parts ...string) (string, error) {
	dir := filepath.Join(parts...)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create directory %s: %w", dir, err)
		}
		log.Debug().Str("dir", dir).Msg("Created directory")
	}
	return dir, nil
}
