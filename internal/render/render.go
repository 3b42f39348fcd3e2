// Package render emits the HTML embed snippet for a stored asset.
package render

import (
	"fmt"
	"math"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

// ThumbnailWidth is the display width above which embeds link a
// downscaled thumbnail to the full-size image.
const ThumbnailWidth = 320

// Embed renders the HTML snippet for the asset. Wide images get a
// link-wrapped thumbnail pointing at the small variant; everything else
// is embedded at native size. Paths are already percent-encoded by
// slugification, so no further escaping is applied.
func Embed(asset types.ImageAsset) string {
	if asset.Width > ThumbnailWidth {
		scale := float64(asset.Width) / ThumbnailWidth
		scaledHeight := int(math.Round(float64(asset.Height) / scale))
		return fmt.Sprintf(`<a href="%s"><img src="%s?size=small" width="%d" height="%d" /></a>`,
			asset.Path, asset.Path, ThumbnailWidth, scaledHeight)
	}
	return fmt.Sprintf(`<img src="%s" width="%d" height="%d" />`,
		asset.Path, asset.Width, asset.Height)
}
