package vtuner

import (
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"
)

const (
	// InitPath is queried first by the device, with a token parameter for the
	// handshake and with start/howmany for the root listing.
	InitPath = "/setupapp/Yamaha/asp/BrowseXML/loginXML.asp"

	// StatusPath is queried with an id parameter when the device wants a
	// single station's detail before playback.
	StatusPath = "/setupapp/Yamaha/asp/BrowseXML/statxml.asp"

	// Prolog precedes every response body except the handshake token.
	Prolog = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`

	// RootDirCount is the literal DirCount element at the head of every
	// root-style listing. The real service sends a fixed "9" regardless of
	// the actual category count; devices are not known to interpret it.
	RootDirCount = "9"

	// SentinelStationID is reported when a requested station id is unknown
	// and the default station is substituted.
	SentinelStationID = 999999
)

// Item is one entry of a ListOfItems, either a Dir or a Station.
type Item interface {
	item()
}

// Dir is a sub-directory entry. DirCount carries the immediate child count
// so the client can infer that further pages exist.
type Dir struct {
	XMLName  xml.Name `xml:"Item"`
	ItemType string   `xml:"ItemType"`
	Title    string   `xml:"Title"`
	URLDir   string   `xml:"UrlDir"`
	DirCount string   `xml:"DirCount"`
}

func (Dir) item() {}

// NewDir builds a directory entry whose UrlDir addresses the category at
// path, served from base under location.
func NewDir(title, base, location, path string, count int) Dir {
	return Dir{
		ItemType: "Dir",
		Title:    title,
		URLDir:   base + "/" + location + "?category=" + escapeCategory(path),
		DirCount: strconv.Itoa(count),
	}
}

// Station is a playable entry.
type Station struct {
	XMLName     xml.Name `xml:"Item"`
	ItemType    string   `xml:"ItemType"`
	StationName string   `xml:"StationName"`
	StationID   string   `xml:"StationId"`
	StationURL  string   `xml:"StationUrl"`
}

func (Station) item() {}

// NewStation builds a station entry. streamURL is embedded as given; any
// redirect resolution happens before this point.
func NewStation(name, streamURL string, id int) Station {
	return Station{
		ItemType:    "Station",
		StationName: name,
		StationID:   strconv.Itoa(id),
		StationURL:  streamURL,
	}
}

// ListOfItems is the response document shared by every listing operation.
// DirCount is set to RootDirCount on root-style listings only.
type ListOfItems struct {
	XMLName  xml.Name `xml:"ListOfItems"`
	DirCount string   `xml:"DirCount,omitempty"`
	Items    []Item
}

// EncryptedToken is the handshake response, sent without the prolog.
type EncryptedToken struct {
	XMLName xml.Name `xml:"EncryptedToken"`
	Token   string   `xml:",chardata"`
}

// Render serializes a response document preceded by the fixed prolog.
func Render(doc any) ([]byte, error) {
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}

	return append([]byte(Prolog), body...), nil
}

// RenderBare serializes a document without the prolog, as the handshake
// expects.
func RenderBare(doc any) ([]byte, error) {
	return xml.Marshal(doc)
}

// escapeCategory percent-encodes a category path for the query string. The
// real service encodes spaces as %20, not +, so QueryEscape alone won't do.
func escapeCategory(path string) string {
	return strings.ReplaceAll(url.QueryEscape(path), "+", "%20")
}

// Page is a 1-based pagination window over a sorted listing.
type Page struct {
	Start int
	Count int
}

// DefaultPage is the window used when a request carries no paging
// parameters.
func DefaultPage() Page {
	return Page{Start: 1, Count: 8}
}

// ParsePage reads the start and howmany query values, falling back to the
// default window when either is absent or malformed. The protocol has no
// error response for bad paging values, so lenience is the only option.
func ParsePage(start, howmany string) Page {
	s, err := strconv.Atoi(start)
	if err != nil || s < 1 {
		return DefaultPage()
	}

	n, err := strconv.Atoi(howmany)
	if err != nil || n < 0 {
		return DefaultPage()
	}

	return Page{Start: s, Count: n}
}

// Bounds clamps the window against a listing of n items and returns the
// 0-based half-open slice range.
func (p Page) Bounds(n int) (int, int) {
	lo := p.Start - 1
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}

	hi := lo + p.Count
	if hi > n {
		hi = n
	}

	return lo, hi
}
