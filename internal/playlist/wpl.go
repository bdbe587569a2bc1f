package playlist

import (
	"encoding/xml"
	"os"
	"path/filepath"
)

// WPL structure based on Windows Media Player playlist format
type WPL struct {
	XMLName xml.Name `xml:"smil"`
	Head    WPLHead  `xml:"head"`
	Body    WPLBody  `xml:"body"`
}

type WPLHead struct {
	Title string `xml:"title"`
}

type WPLBody struct {
	Seq WPLSeq `xml:"seq"`
}

type WPLSeq struct {
	Media []WPLMedia `xml:"media"`
}

type WPLMedia struct {
	Src string `xml:"src,attr"`
}

// ParseWPL reads a Windows Media Player playlist. The <title> element,
// when present, names the playlist.
func ParseWPL(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wpl WPL
	if err := xml.Unmarshal(data, &wpl); err != nil {
		return nil, err
	}

	pl := newPlaylist(path)
	if wpl.Head.Title != "" {
		pl.Name = wpl.Head.Title
	}

	dir := filepath.Dir(path)
	for _, media := range wpl.Body.Seq.Media {
		if media.Src == "" {
			continue
		}
		pl.Items = append(pl.Items, Item{Path: Resolve(dir, media.Src), OrigPath: media.Src})
	}
	return pl, nil
}
