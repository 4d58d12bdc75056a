package transport

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdok/wmtstiles/mapslicehelp"
)

// GetTileRequest is a WMTS 1.0.0 KVP GetTile request for a single tile.
type GetTileRequest struct {
	Layer         string
	Style         string
	Format        string
	TileMatrixSet string
	TileMatrix    string
	TileRow       int
	TileCol       int
	// Dimensions holds extra parameters such as TIME, keyed by dimension identifier.
	Dimensions map[string]string
}

func (r GetTileRequest) Values() url.Values {
	v := url.Values{}
	v.Set("SERVICE", "WMTS")
	v.Set("REQUEST", "GetTile")
	v.Set("VERSION", "1.0.0")
	v.Set("LAYER", r.Layer)
	v.Set("STYLE", r.Style)
	v.Set("FORMAT", r.Format)
	v.Set("TILEMATRIXSET", r.TileMatrixSet)
	v.Set("TILEMATRIX", r.TileMatrix)
	v.Set("TILEROW", strconv.Itoa(r.TileRow))
	v.Set("TILECOL", strconv.Itoa(r.TileCol))
	for k, val := range r.Dimensions {
		v.Set(strings.ToUpper(k), val)
	}
	return v
}

// URL appends the request parameters to base, keeping parameters already present in it.
func (r GetTileRequest) URL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	params := r.Values()
	for _, k := range mapslicehelp.SortedKeys(params) {
		for existing := range q {
			if strings.EqualFold(existing, k) {
				q.Del(existing)
			}
		}
		q.Set(k, params.Get(k))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// KVPClient sends GetTile requests to one WMTS KVP endpoint.
type KVPClient struct {
	getter  Getter
	baseURL string
}

func NewKVPClient(getter Getter, baseURL string) *KVPClient {
	return &KVPClient{getter: getter, baseURL: baseURL}
}

// GetTile returns the tile bytes and content type. An OWS exception report sent instead of
// a tile is returned as a *FetchError wrapping a *ServiceException.
func (c *KVPClient) GetTile(ctx context.Context, req GetTileRequest, headers map[string]string) ([]byte, string, error) {
	u, err := req.URL(c.baseURL)
	if err != nil {
		return nil, "", NewFetchError(c.baseURL, err)
	}
	body, contentType, err := c.getter.Get(ctx, u, headers)
	if err != nil {
		return nil, "", NewFetchError(u, err)
	}
	if isXML(body, contentType) {
		if se := parseExceptionReport(body); se != nil {
			return nil, "", NewFetchError(u, se)
		}
		return nil, "", NewFetchError(u, fmt.Errorf("unexpected xml response of content type %q", contentType))
	}
	return body, contentType, nil
}

func isXML(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "xml") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<ExceptionReport")) ||
		bytes.HasPrefix(trimmed, []byte("<ows:ExceptionReport"))
}

type exceptionReport struct {
	XMLName    xml.Name `xml:"ExceptionReport"`
	Exceptions []struct {
		Code    string   `xml:"exceptionCode,attr"`
		Locator string   `xml:"locator,attr"`
		Texts   []string `xml:"ExceptionText"`
	} `xml:"Exception"`
}

func parseExceptionReport(body []byte) *ServiceException {
	var report exceptionReport
	if err := xml.Unmarshal(body, &report); err != nil || len(report.Exceptions) == 0 {
		return nil
	}
	first := report.Exceptions[0]
	se := &ServiceException{Code: first.Code, Locator: first.Locator}
	for _, e := range report.Exceptions {
		for _, t := range e.Texts {
			if t = strings.TrimSpace(t); t != "" {
				se.Texts = append(se.Texts, t)
			}
		}
	}
	return se
}
