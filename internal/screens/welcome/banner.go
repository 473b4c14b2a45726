package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/readkode/readkode/internal/ui/theme"
)

const bannerArt = `
 ██████╗ ███████╗ █████╗ ██████╗ ██╗  ██╗ ██████╗ ██████╗ ███████╗
 ██╔══██╗██╔════╝██╔══██╗██╔══██╗██║ ██╔╝██╔═══██╗██╔══██╗██╔════╝
 ██████╔╝█████╗  ███████║██║  ██║█████╔╝ ██║   ██║██║  ██║█████╗
 ██╔══██╗██╔══╝  ██╔══██║██║  ██║██╔═██╗ ██║   ██║██║  ██║██╔══╝
 ██║  ██║███████╗██║  ██║██████╔╝██║  ██╗╚██████╔╝██████╔╝███████╗
 ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚═════╝ ╚══════╝`

const bannerCompact = "R E A D K O D E"

// RenderBanner returns the banner in the primary color, compact below 70
// columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 70 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
