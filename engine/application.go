package engine

type ApplicationConfig struct {
	// The application name used in logs.
	Name string `toml:"name"`
	// Viewport width in pixels.
	Width uint32 `toml:"width"`
	// Viewport height in pixels.
	Height uint32 `toml:"height"`
	// Number of frames to render before Run returns. Zero runs until the
	// context is cancelled.
	Frames int `toml:"frames"`
	// Scene objects the game starts with. Command buffers for them are
	// distributed before the first frame.
	Objects int `toml:"objects"`
}
