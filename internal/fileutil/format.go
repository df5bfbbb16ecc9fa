package fileutil

import (
	"path/filepath"
	"strings"
)

// FormatOther tags files whose extension is not in the format table
const FormatOther = "other"

// FormatPDF is the tag of every preservation copy
const FormatPDF = "pdf"

// formats maps lowercase extensions (without dot) to canonical tags.
var formats = map[string]string{
	"pdf":  FormatPDF,
	"doc":  "doc",
	"docx": "docx",
	"odt":  "odt",
	"rtf":  "rtf",
	"txt":  "txt",
	"text": "txt",
	"md":   "md",
	"xls":  "xls",
	"xlsx": "xlsx",
	"ods":  "ods",
	"csv":  "csv",
	"ppt":  "ppt",
	"pptx": "pptx",
	"odp":  "odp",
	"htm":  "html",
	"html": "html",
	"xml":  "xml",
	"jpg":  "jpg",
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"tif":  "tiff",
	"tiff": "tiff",
	"bmp":  "bmp",
	"svg":  "svg",
	"dwg":  "dwg",
	"dxf":  "dxf",
	"dgn":  "dgn",
	"zip":  "zip",
	"mp3":  "mp3",
	"wav":  "wav",
	"mp4":  "mp4",
}

// Extension returns the lowercase extension of name without the leading dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// FormatOf returns the canonical format tag for name, or FormatOther.
func FormatOf(name string) string {
	if tag, ok := formats[Extension(name)]; ok {
		return tag
	}
	return FormatOther
}
