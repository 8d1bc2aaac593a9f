package config

// Theme names accepted by ui.theme.
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// UIConfig holds user interface configuration.
type UIConfig struct {
	// Theme is "auto" (detect from terminal), "light" or "dark".
	Theme string `yaml:"theme"`
}
