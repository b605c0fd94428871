package render

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// gpx is the subset of the GPX 1.1 schema needed for a single track
type gpx struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Track   gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name    string     `xml:"name"`
	Segment gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  float64   `xml:"lat,attr"`
	Lon  float64   `xml:"lon,attr"`
	Time time.Time `xml:"time"`
}

// GPXStats reports what the track writer did with the sequence
type GPXStats struct {
	Points  int // records with coordinates, written as track points
	Skipped int // records without coordinates
	Errors  int // Err entries, which have no position
}

// GPX writes records carrying coordinates as one GPX track, for feeding
// timelines into map tooling. Records without a position and Err entries
// are skipped and counted; they cannot appear in a track.
func GPX(w io.Writer, seq stream.Seq[source.Record]) (GPXStats, error) {
	var stats GPXStats
	doc := gpx{
		Version: "1.1",
		Creator: "estuary",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Track:   gpxTrack{Name: "estuary export"},
	}

	for r := range seq {
		if r.IsErr() {
			stats.Errors++
			continue
		}
		loc, ok := r.Value().(source.Locator)
		if !ok {
			stats.Skipped++
			continue
		}
		lat, lon, ok := loc.LatLon()
		if !ok {
			stats.Skipped++
			continue
		}
		doc.Track.Segment.Points = append(doc.Track.Segment.Points, gpxPoint{
			Lat:  lat,
			Lon:  lon,
			Time: r.Value().Timestamp().UTC(),
		})
		stats.Points++
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return stats, err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return stats, err
	}
	if err := enc.Close(); err != nil {
		return stats, err
	}
	_, err := io.WriteString(w, "\n")
	return stats, err
}
