// Package imagegen renders a weather record into a shareable PNG card.
package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/bebther/bebther/internal/models"
)

const (
	cardWidth  = 480
	cardHeight = 320
)

var (
	darkBackground  = color.RGBA{R: 0x1e, G: 0x1e, B: 0x28, A: 0xff}
	darkText        = color.RGBA{R: 0xe8, G: 0xe8, B: 0xf0, A: 0xff}
	lightBackground = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf5, A: 0xff}
	lightText       = color.RGBA{R: 0x20, G: 0x20, B: 0x28, A: 0xff}
)

// Card draws the record into a PNG using the dark or light palette.
func Card(rec *models.WeatherRecord, darkTheme bool) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("no record to render")
	}

	background, text := lightBackground, lightText
	if darkTheme {
		background, text = darkBackground, darkText
	}

	img := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(text),
		Face: basicfont.Face7x13,
	}

	lines := []string{
		fmt.Sprintf("%s  (%s)", rec.City, rec.Source),
		"",
		fmt.Sprintf("Now:       %s", signed(rec.Temperature)),
		fmt.Sprintf("Day:       %s", signed(rec.DayTemperature)),
		fmt.Sprintf("Night:     %s", signed(rec.NightTemperature)),
		fmt.Sprintf("Humidity:  %.0f%%", rec.Humidity),
		fmt.Sprintf("Wind:      %.1f m/s", rec.WindSpeed),
		fmt.Sprintf("Pressure:  %.0f", rec.Pressure),
		fmt.Sprintf("UV index:  %.1f", rec.UVIndex),
		fmt.Sprintf("Sunrise:   %s", rec.SunriseTime),
		fmt.Sprintf("Sunset:    %s", rec.SunsetTime),
	}

	y := 40
	for _, line := range lines {
		drawer.Dot = fixed.P(32, y)
		drawer.DrawString(line)
		y += 22
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

// signed formats a temperature with an explicit plus sign, the way the
// original UI displayed it.
func signed(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.1f°", v)
	}
	return fmt.Sprintf("%.1f°", v)
}
