package camera

// Kind selects which capture utility a terminal operation drives.
type Kind int

const (
	Still Kind = iota
	Video
)

// Binary returns the default utility name for the kind.
func (k Kind) Binary() string {
	if k == Video {
		return "raspivid"
	}
	return "raspistill"
}

// Folder returns the default subdirectory for captures of this kind.
func (k Kind) Folder() string {
	if k == Video {
		return "videos"
	}
	return "pictures"
}

// Ext returns the file extension used for synthesized filenames.
func (k Kind) Ext() string {
	if k == Video {
		return "h264"
	}
	return "jpg"
}

func (k Kind) String() string {
	if k == Video {
		return "video"
	}
	return "still"
}

// ParseKind maps "still"/"video" (and the binary names) to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "still", "picture", "raspistill":
		return Still, true
	case "video", "raspivid":
		return Video, true
	}
	return Still, false
}
