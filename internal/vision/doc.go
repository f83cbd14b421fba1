// Package vision locates reference images inside device screenshots.
//
// Matching uses normalized cross-correlation over grayscale planes:
// robust to uniform brightness shifts between the template capture and
// the live screen, and deterministic — ties resolve to the first
// position in raster order. Scores fall in [-1,1] with 1.0 a pixel-
// perfect match; automation configurations set the acceptance
// threshold (0.7 by default).
//
// Templates are plain PNG files in a directory, named by filename
// without extension. The Store caches prepared templates and can be
// invalidated when files change on disk.
//
// The scan is exhaustive and single-scale. Emulator screens have fixed
// resolution, so templates captured at that resolution match exactly
// and no pyramid search is needed.
package vision
