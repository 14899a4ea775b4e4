package transactions

import "fmt"

// Risk is how a file was classified when it passed the ICAP service.
type Risk int

const (
	RiskUnknown         Risk = 0
	RiskBlockedByPolicy Risk = 1
	RiskBlockedByNCFS   Risk = 2
	RiskAllowedByPolicy Risk = 3
	RiskAllowedByNCFS   Risk = 4
	RiskSafe            Risk = 5
)

var riskNames = map[Risk]string{
	RiskUnknown:         "Unknown",
	RiskBlockedByPolicy: "Blocked By Policy",
	RiskBlockedByNCFS:   "Blocked By NCFS",
	RiskAllowedByPolicy: "Allowed By Policy",
	RiskAllowedByNCFS:   "Allowed By NCFS",
	RiskSafe:            "Safe",
}

func (r Risk) String() string {
	if n, ok := riskNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Risk(%d)", int(r))
}

// Risks lists every known risk.
func Risks() []Risk {
	return []Risk{
		RiskUnknown, RiskBlockedByPolicy, RiskBlockedByNCFS,
		RiskAllowedByPolicy, RiskAllowedByNCFS, RiskSafe,
	}
}

// FileType is the type of file detected by the Glasswall engine.
type FileType int

const (
	FileTypeUnknown                  FileType = 0
	FileTypeFileIssues               FileType = 1
	FileTypeBufferIssues             FileType = 2
	FileTypeInternalIssues           FileType = 3
	FileTypeLicenseExpired           FileType = 4
	FileTypePasswordProtectedOpcFile FileType = 5
	FileTypePdf                      FileType = 16
	FileTypeDoc                      FileType = 17
	FileTypeDocx                     FileType = 18
	FileTypePpt                      FileType = 19
	FileTypePptx                     FileType = 20
	FileTypeXls                      FileType = 21
	FileTypeXlsx                     FileType = 22
	FileTypePng                      FileType = 23
	FileTypeJpeg                     FileType = 24
	FileTypeGif                      FileType = 25
	FileTypeEmf                      FileType = 26
	FileTypeWmf                      FileType = 27
	FileTypeRtf                      FileType = 28
	FileTypeBmp                      FileType = 29
	FileTypeTiff                     FileType = 30
	FileTypePe                       FileType = 31
	FileTypeMacho                    FileType = 32
	FileTypeElf                      FileType = 33
	FileTypeMp4                      FileType = 34
	FileTypeMp3                      FileType = 35
	FileTypeMp2                      FileType = 36
	FileTypeWav                      FileType = 37
	FileTypeMpg                      FileType = 38
	FileTypeCoff                     FileType = 39
	FileTypeJson                     FileType = 40
	FileTypeXml                      FileType = 41
	FileTypeZip                      FileType = 256
	FileTypeGzip                     FileType = 257
	FileTypeBzip2                    FileType = 258
	FileTypeSevenZip                 FileType = 259
	FileTypeRar                      FileType = 260
	FileTypeTar                      FileType = 261
)

var fileTypeNames = map[FileType]string{
	FileTypeUnknown:                  "Unknown",
	FileTypeFileIssues:               "FileIssues",
	FileTypeBufferIssues:             "BufferIssues",
	FileTypeInternalIssues:           "InternalIssues",
	FileTypeLicenseExpired:           "LicenseExpired",
	FileTypePasswordProtectedOpcFile: "PasswordProtectedOpcFile",
	FileTypePdf:                      "pdf",
	FileTypeDoc:                      "doc",
	FileTypeDocx:                     "docx",
	FileTypePpt:                      "ppt",
	FileTypePptx:                     "pptx",
	FileTypeXls:                      "xls",
	FileTypeXlsx:                     "xlsx",
	FileTypePng:                      "png",
	FileTypeJpeg:                     "jpeg",
	FileTypeGif:                      "gif",
	FileTypeEmf:                      "emf",
	FileTypeWmf:                      "wmf",
	FileTypeRtf:                      "rtf",
	FileTypeBmp:                      "bmp",
	FileTypeTiff:                     "tiff",
	FileTypePe:                       "pe",
	FileTypeMacho:                    "macho",
	FileTypeElf:                      "elf",
	FileTypeMp4:                      "mp4",
	FileTypeMp3:                      "mp3",
	FileTypeMp2:                      "mp2",
	FileTypeWav:                      "wav",
	FileTypeMpg:                      "mpg",
	FileTypeCoff:                     "coff",
	FileTypeJson:                     "json",
	FileTypeXml:                      "xml",
	FileTypeZip:                      "zip",
	FileTypeGzip:                     "gzip",
	FileTypeBzip2:                    "bzip2",
	FileTypeSevenZip:                 "7z",
	FileTypeRar:                      "rar",
	FileTypeTar:                      "tar",
}

func (f FileType) String() string {
	if n, ok := fileTypeNames[f]; ok {
		return n
	}
	return fmt.Sprintf("FileType(%d)", int(f))
}

// DetailsStatus is the outcome of reading an analysis report.
type DetailsStatus int

const (
	DetailsUnknown  DetailsStatus = 0
	DetailsSuccess  DetailsStatus = 1
	DetailsNotFound DetailsStatus = 2
	DetailsFailed   DetailsStatus = 3
)

func (s DetailsStatus) String() string {
	switch s {
	case DetailsSuccess:
		return "Success"
	case DetailsNotFound:
		return "NotFound"
	case DetailsFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
