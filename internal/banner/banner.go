package banner

import (
	"beetest/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
    ____            ______          __
   / __ )___  ___  /_  __/__  _____/ /_
  / __  / _ \/ _ \  / / / _ \/ ___/ __/
 / /_/ /  __/  __/ / / /  __(__  ) /_
/_____/\___/\___/ /_/  \___/____/\__/  `

	return "\n" + style.Render(ascii) + "\n"
}
