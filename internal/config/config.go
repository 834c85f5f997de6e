package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/character-extractor/internal/utils"
)

// EnvPrefix prefixes every environment override, e.g. CHAREX_BACKEND_URL
const EnvPrefix = "CHAREX"

// Config holds the application configuration
type Config struct {
	Backend  BackendConfig  `json:"backend" yaml:"backend" envconfig:"BACKEND"`
	Tagger   TaggerConfig   `json:"tagger" yaml:"tagger" envconfig:"TAGGER"`
	Detector DetectorConfig `json:"detector" yaml:"detector" envconfig:"DETECTOR"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" envconfig:"PIPELINE"`
	Output   OutputConfig   `json:"output" yaml:"output" envconfig:"OUTPUT"`
	Cache    CacheConfig    `json:"cache" yaml:"cache" envconfig:"CACHE"`
	Registry RegistryConfig `json:"registry" yaml:"registry" envconfig:"REGISTRY"`
}

// BackendConfig selects the vision model server
type BackendConfig struct {
	Type           string `json:"type" yaml:"type" envconfig:"TYPE" validate:"oneof=ollama llamacpp"`
	URL            string `json:"url" yaml:"url" envconfig:"URL" validate:"required,url"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty" envconfig:"API_KEY"`
	VLMModel       string `json:"vlm_model" yaml:"vlm_model" envconfig:"VLM_MODEL" validate:"required"`
	DetectModel    string `json:"detect_model" yaml:"detect_model" envconfig:"DETECT_MODEL" validate:"required"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS" validate:"gte=0"`
	ImageMaxDim    int    `json:"image_max_dim" yaml:"image_max_dim" envconfig:"IMAGE_MAX_DIM" validate:"gte=0"`
	ImageFormat    string `json:"image_format" yaml:"image_format" envconfig:"IMAGE_FORMAT" validate:"oneof=jpg png"`
}

// TaggerConfig locates the tag model, its labels and the bucket file. Model
// and labels come from local paths or, when those are empty, from the model
// registry.
type TaggerConfig struct {
	ModelPath         string `json:"model_path" yaml:"model_path" envconfig:"MODEL_PATH"`
	LabelsPath        string `json:"labels_path" yaml:"labels_path" envconfig:"LABELS_PATH"`
	BucketsPath       string `json:"buckets_path" yaml:"buckets_path" envconfig:"BUCKETS_PATH" validate:"required"`
	ModelRepo         string `json:"model_repo" yaml:"model_repo" envconfig:"MODEL_REPO"`
	ModelFile         string `json:"model_file" yaml:"model_file" envconfig:"MODEL_FILE"`
	LabelsFile        string `json:"labels_file" yaml:"labels_file" envconfig:"LABELS_FILE"`
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path" envconfig:"SHARED_LIBRARY_PATH"`
	InputSize         int    `json:"input_size" yaml:"input_size" envconfig:"INPUT_SIZE" validate:"gte=0"`
}

// DetectorConfig holds configuration for person detection
type DetectorConfig struct {
	Prompt        string  `json:"prompt,omitempty" yaml:"prompt,omitempty" envconfig:"PROMPT"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" envconfig:"MIN_CONFIDENCE" validate:"gte=0,lte=1"`
	MinCropSize   int     `json:"min_crop_size" yaml:"min_crop_size" envconfig:"MIN_CROP_SIZE" validate:"gte=0"`
	Debug         bool    `json:"debug" yaml:"debug" envconfig:"DEBUG"`
}

// PipelineConfig holds configuration for attribute extraction
type PipelineConfig struct {
	Threshold float64  `json:"threshold" yaml:"threshold" envconfig:"THRESHOLD" validate:"gt=0,lte=1"`
	CropDir   string   `json:"crop_dir" yaml:"crop_dir" envconfig:"CROP_DIR" validate:"required"`
	AlwaysAsk []string `json:"always_ask" yaml:"always_ask" envconfig:"ALWAYS_ASK"`
}

// OutputConfig holds configuration for saved crops
type OutputConfig struct {
	Format   string `json:"format" yaml:"format" envconfig:"FORMAT" validate:"oneof=jpg jpeg png webp"`
	Quality  int    `json:"quality" yaml:"quality" envconfig:"QUALITY" validate:"gte=1,lte=100"`
	Lossless bool   `json:"lossless" yaml:"lossless" envconfig:"LOSSLESS"`
}

// CacheConfig holds configuration for the result cache
type CacheConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" envconfig:"ENABLED"`
	Dir      string `json:"dir" yaml:"dir" envconfig:"DIR"`
	TTLHours int    `json:"ttl_hours" yaml:"ttl_hours" envconfig:"TTL_HOURS" validate:"gte=0"`
}

// RegistryConfig holds configuration for model downloads
type RegistryConfig struct {
	BaseURL  string `json:"base_url" yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	Revision string `json:"revision" yaml:"revision" envconfig:"REVISION"`
	CacheDir string `json:"cache_dir" yaml:"cache_dir" envconfig:"CACHE_DIR"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty" envconfig:"TOKEN"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Type:           "ollama",
			URL:            "http://localhost:11434",
			VLMModel:       "qwen2.5vl:7b",
			DetectModel:    "qwen2.5vl:7b",
			TimeoutSeconds: 300,
			ImageMaxDim:    1024,
			ImageFormat:    "jpg",
		},
		Tagger: TaggerConfig{
			BucketsPath: "danbooru_bucket.json",
			ModelRepo:   "public-data/DeepDanbooru",
			ModelFile:   "model-resnet_custom_v3.onnx",
			LabelsFile:  "tags.txt",
		},
		Detector: DetectorConfig{
			MinConfidence: 0.25,
			MinCropSize:   32,
		},
		Pipeline: PipelineConfig{
			Threshold: 0.4,
			CropDir:   "cropped_persons",
			AlwaysAsk: []string{"Ethnicity"},
		},
		Output: OutputConfig{
			Format:  "jpg",
			Quality: 95,
		},
		Cache: CacheConfig{
			Enabled:  false,
			TTLHours: 24 * 7,
		},
		Registry: RegistryConfig{
			BaseURL:  "https://huggingface.co",
			Revision: "main",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file on top of the
// defaults. The format follows the file extension.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as JSON or YAML depending on the extension
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	if err := utils.EnsureDir(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from CHAREX_* environment variables. Unset
// variables leave the current values alone.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Tagger.ModelPath == "" && (c.Tagger.ModelRepo == "" || c.Tagger.ModelFile == "") {
		return fmt.Errorf("tagger.model_path or tagger.model_repo with tagger.model_file is required")
	}
	if c.Tagger.LabelsPath == "" && (c.Tagger.ModelRepo == "" || c.Tagger.LabelsFile == "") {
		return fmt.Errorf("tagger.labels_path or tagger.model_repo with tagger.labels_file is required")
	}
	if c.Output.Lossless && c.Output.Format != "webp" {
		return fmt.Errorf("output.lossless is only supported for webp")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "character-extractor", "config.json")
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}
