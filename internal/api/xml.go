package api

import (
	"encoding/xml"
	"time"
)

// s3Namespace is the XML namespace of S3 response documents.
const s3Namespace = "http://s3.amazonaws.com/doc/2006-03-01/"

// LocationConstraint is the GetBucketLocation response.
type LocationConstraint struct {
	XMLName xml.Name `xml:"LocationConstraint"`
	Xmlns   string   `xml:"xmlns,attr"`
	Region  string   `xml:",chardata"`
}

// ListBucketResult is the ListObjects (V1 and V2) response.
type ListBucketResult struct {
	XMLName               xml.Name       `xml:"ListBucketResult"`
	Xmlns                 string         `xml:"xmlns,attr"`
	Name                  string         `xml:"Name"`
	Prefix                string         `xml:"Prefix"`
	Marker                *string        `xml:"Marker,omitempty"`
	NextMarker            string         `xml:"NextMarker,omitempty"`
	StartAfter            string         `xml:"StartAfter,omitempty"`
	ContinuationToken     string         `xml:"ContinuationToken,omitempty"`
	NextContinuationToken string         `xml:"NextContinuationToken,omitempty"`
	KeyCount              int            `xml:"KeyCount"`
	MaxKeys               int            `xml:"MaxKeys"`
	Delimiter             string         `xml:"Delimiter,omitempty"`
	IsTruncated           bool           `xml:"IsTruncated"`
	Contents              []Contents     `xml:"Contents"`
	CommonPrefixes        []CommonPrefix `xml:"CommonPrefixes"`
}

// Contents is one object in a listing.
type Contents struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

// CommonPrefix is one rolled-up prefix in a delimited listing.
type CommonPrefix struct {
	Prefix string `xml:"Prefix"`
}

// SelectObjectContentRequest is the body of POST /{bucket}/{key}?select.
// Element names are matched without regard to namespace.
type SelectObjectContentRequest struct {
	XMLName             xml.Name             `xml:"SelectObjectContentRequest"`
	Expression          string               `xml:"Expression"`
	ExpressionType      string               `xml:"ExpressionType"`
	InputSerialization  *InputSerialization  `xml:"InputSerialization"`
	OutputSerialization *OutputSerialization `xml:"OutputSerialization"`
}

// InputSerialization names the object format. Only Parquet is served.
type InputSerialization struct {
	Parquet *struct{} `xml:"Parquet"`
	CSV     *struct{} `xml:"CSV"`
	JSON    *struct{} `xml:"JSON"`
}

// OutputSerialization selects the response row format.
type OutputSerialization struct {
	CSV  *struct{} `xml:"CSV"`
	JSON *struct{} `xml:"JSON"`
}

// s3Time formats a timestamp the way S3 listings do.
func s3Time(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
