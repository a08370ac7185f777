package console

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/randalmurphal/flowchat/pkg/chat"
)

// Banner returns a banner printer colored for profile. termenv.Ascii
// prints plain text.
func Banner(profile termenv.Profile) func(io.Writer) {
	return func(w io.Writer) {
		title := profile.String(chat.BannerTitle).Bold().Foreground(profile.Color("#818cf8"))
		hint := profile.String(chat.BannerHint).Faint()

		fmt.Fprintln(w, title)
		fmt.Fprintln(w, hint)
		fmt.Fprintln(w)
	}
}
