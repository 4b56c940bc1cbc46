package camera

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	keyOutput = "-o"
	// keyStream is a shell redirect rather than a flag: raspivid writes to
	// stdout and the shell sends it to the target.
	keyStream = "-o - >"
)

// parseInt is a lenient base-10 parse: leading whitespace and a sign are
// skipped, then as many digits as are present are read. No digits at all
// reports false, which setters store as NaN.
func parseInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float32:
		return parseFloat(float64(t))
	case float64:
		return parseFloat(t)
	case json.Number:
		return parseIntString(t.String())
	case string:
		return parseIntString(t)
	}
	return 0, false
}

func parseFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int(f), true
}

func parseIntString(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func (c *Camera) setSwitch(key string) *Camera {
	c.params.Set(key, true)
	return c
}

func (c *Camera) setInt(key string, v any) *Camera {
	if n, ok := parseInt(v); ok {
		c.params.Set(key, n)
	} else {
		c.params.Set(key, NaN)
	}
	return c
}

func (c *Camera) setValue(key string, v any) *Camera {
	if v == nil {
		v = ""
	}
	c.params.Set(key, v)
	return c
}

func (c *Camera) setISO(v any) *Camera {
	if n, ok := parseInt(v); ok && n != 0 {
		c.params.Set("-ISO", n)
	}
	return c
}

// Param stores an arbitrary flag. A value of true emits the flag alone.
func (c *Camera) Param(key string, value any) *Camera { return c.setValue(key, value) }

// Flag stores an arbitrary switch.
func (c *Camera) Flag(key string) *Camera { return c.setSwitch(key) }

// Switches.

// Fullscreen enables the fullscreen preview.
func (c *Camera) Fullscreen() *Camera { return c.setSwitch("-f") }

// NoPreview disables the preview window.
func (c *Camera) NoPreview() *Camera { return c.setSwitch("-n") }

func (c *Camera) HFlip() *Camera      { return c.setSwitch("-hf") }
func (c *Camera) VFlip() *Camera      { return c.setSwitch("-vf") }
func (c *Camera) VStab() *Camera      { return c.setSwitch("-vs") }
func (c *Camera) Stereo() *Camera     { return c.setSwitch("-3d") }
func (c *Camera) StereoSwap() *Camera { return c.setSwitch("-3dswap") }

// Stats forces recomputation of statistics on the stills capture pass.
func (c *Camera) Stats() *Camera { return c.setSwitch("-st") }

// Decimate halves the width/height of a stereo image.
func (c *Camera) Decimate() *Camera { return c.setSwitch("-dec") }

// Integers.

// Quality sets JPEG quality, 1 to 100.
func (c *Camera) Quality(percent int) *Camera { return c.setInt("-q", percent) }

// Width sets the image width in pixels.
func (c *Camera) Width(px int) *Camera { return c.setInt("-w", px) }

// Height sets the image height in pixels.
func (c *Camera) Height(px int) *Camera { return c.setInt("-h", px) }

// Opacity sets preview window opacity, 0 to 255.
func (c *Camera) Opacity(value int) *Camera { return c.setInt("-op", value) }

// Brightness sets image brightness, 0 to 100.
func (c *Camera) Brightness(value int) *Camera { return c.setInt("-br", value) }

// Rotation sets image rotation in degrees.
func (c *Camera) Rotation(degrees int) *Camera { return c.setInt("-rot", degrees) }

// Shutter sets shutter speed in microseconds. Shares -s with Signal.
func (c *Camera) Shutter(us int) *Camera { return c.setInt("-s", us) }

// ISO sets capture ISO. Zero leaves the mapping untouched.
func (c *Camera) ISO(value int) *Camera { return c.setISO(value) }

// Passthrough values, stored as given.

// Preview sets the preview window as "x,y,w,h".
func (c *Camera) Preview(value string) *Camera    { return c.setValue("-p", value) }
func (c *Camera) Sharpness(value string) *Camera  { return c.setValue("-sh", value) }
func (c *Camera) Contrast(value string) *Camera   { return c.setValue("-co", value) }
func (c *Camera) Saturation(value string) *Camera { return c.setValue("-sa", value) }

// EV sets exposure compensation in steps of 1/6 stop.
func (c *Camera) EV(value string) *Camera { return c.setValue("-ev", value) }

// Exposure sets the exposure mode (auto, night, sports, ...).
func (c *Camera) Exposure(mode string) *Camera { return c.setValue("-ex", mode) }

// AWB sets the white balance mode.
func (c *Camera) AWB(mode string) *Camera { return c.setValue("-awb", mode) }

// AWBGains sets explicit red,blue gains; AWB mode must be off.
func (c *Camera) AWBGains(value string) *Camera { return c.setValue("-awbg", value) }

func (c *Camera) ImageEffect(value string) *Camera  { return c.setValue("-ifx", value) }
func (c *Camera) ColourEffect(value string) *Camera { return c.setValue("-cfx", value) }
func (c *Camera) Metering(mode string) *Camera      { return c.setValue("-mm", mode) }

// ROI sets the region of interest as normalised "x,y,w,h".
func (c *Camera) ROI(value string) *Camera { return c.setValue("-roi", value) }

// DRC sets the dynamic range compression level.
func (c *Camera) DRC(level string) *Camera { return c.setValue("-drc", level) }

func (c *Camera) Annotate(value string) *Camera   { return c.setValue("-a", value) }
func (c *Camera) AnnotateEx(value string) *Camera { return c.setValue("-ae", value) }
func (c *Camera) Raw(value string) *Camera        { return c.setValue("-r", value) }

// Output sets the output path and records it as the filename.
func (c *Camera) Output(path string) *Camera {
	c.filename = path
	return c.setValue(keyOutput, path)
}

func (c *Camera) Latest(path string) *Camera       { return c.setValue("-l", path) }
func (c *Camera) Verbose(value string) *Camera     { return c.setValue("-v", value) }
func (c *Camera) Timeout(ms string) *Camera        { return c.setValue("-t", ms) }
func (c *Camera) Timelapse(ms string) *Camera      { return c.setValue("-tl", ms) }
func (c *Camera) Thumb(value string) *Camera       { return c.setValue("-th", value) }
func (c *Camera) Demo(value string) *Camera        { return c.setValue("-d", value) }
func (c *Camera) Exif(value string) *Camera        { return c.setValue("-x", value) }
func (c *Camera) FullPreview(value string) *Camera { return c.setValue("-fp", value) }

// Encoding sets the still encoding. Shares -e with Encoder.
func (c *Camera) Encoding(value string) *Camera { return c.setValue("-e", value) }

// Signal shares -s with Shutter; the later call wins.
func (c *Camera) Signal(value string) *Camera { return c.setValue("-s", value) }

func (c *Camera) Bitrate(value string) *Camera   { return c.setValue("-b", value) }
func (c *Camera) Framerate(value string) *Camera { return c.setValue("-fps", value) }

// Encoder sets the video encoder. Shares -e with Encoding.
func (c *Camera) Encoder(value string) *Camera { return c.setValue("-e", value) }

// Intra sets the intra refresh period.
func (c *Camera) Intra(value string) *Camera   { return c.setValue("-g", value) }
func (c *Camera) QP(value string) *Camera      { return c.setValue("-qp", value) }
func (c *Camera) Profile(value string) *Camera { return c.setValue("-pf", value) }
func (c *Camera) Inline(value string) *Camera  { return c.setValue("-ih", value) }
func (c *Camera) Timed(value string) *Camera   { return c.setValue("-td", value) }
func (c *Camera) Initial(value string) *Camera { return c.setValue("-i", value) }
func (c *Camera) Segment(value string) *Camera { return c.setValue("-sg", value) }
func (c *Camera) Wrap(value string) *Camera    { return c.setValue("-wr", value) }
func (c *Camera) Start(value string) *Camera   { return c.setValue("-sn", value) }

// StreamVideo sends raspivid output through a shell redirect to target.
// While set, RecordVideo drops the -o entry.
func (c *Camera) StreamVideo(target string) *Camera { return c.setValue(keyStream, target) }
