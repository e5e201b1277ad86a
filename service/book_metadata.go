package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/tieubaoca/embedding-be/types"
	"github.com/tieubaoca/embedding-be/utils"
)

// Textbook filenames follow TYPE_SUBJECT_PUBLISHER_GRADE.ext, e.g.
// SGK_TIN_CD_3.pdf. Codes outside these tables pass through as-is.
var bookTypeNames = map[string]string{
	"SGK": "Sách giáo khoa",
	"SBT": "Sách bài tập",
	"STK": "Sách tham khảo",
}

var subjectNames = map[string]string{
	"TIN":  "Tin học",
	"TOAN": "Toán",
	"VAN":  "Ngữ văn",
	"ANH":  "Tiếng Anh",
	"LY":   "Vật lý",
	"HOA":  "Hóa học",
	"SINH": "Sinh học",
	"SU":   "Lịch sử",
	"DIA":  "Địa lý",
	"GDCD": "Giáo dục công dân",
}

var publisherNames = map[string]string{
	"CD":  "Cánh Diều",
	"KN":  "Kết Nối Tri Thức",
	"CT":  "Chân Trời Sáng Tạo",
	"CK":  "Cánh Diền",
	"NXB": "Nhà xuất bản",
}

// ParseBookMetadata derives book metadata from a textbook filename.
// A filename that does not match the convention yields empty fields
// with FullName set to the raw filename, so processing can continue.
func ParseBookMetadata(filename string) types.BookMetadata {
	stem := utils.GetFileNameWithoutExt(filename)
	fields := strings.Split(stem, "_")
	if len(fields) < 4 {
		log.Printf("filename %q does not match textbook naming convention, metadata left empty", filename)
		return types.BookMetadata{FullName: filename}
	}

	bookType := lookupOrRaw(bookTypeNames, fields[0])
	subject := lookupOrRaw(subjectNames, fields[1])
	publisher := lookupOrRaw(publisherNames, fields[2])
	grade := fmt.Sprintf("Lớp %s", fields[3])

	return types.BookMetadata{
		BookType:  bookType,
		Subject:   subject,
		Publisher: publisher,
		Grade:     grade,
		FullName:  fmt.Sprintf("%s %s %s %s", bookType, subject, publisher, grade),
	}
}

// ApplyTextbookInfo overlays the caller-supplied fields on the
// filename-derived metadata. BookName replaces the composed full name.
func ApplyTextbookInfo(book *types.BookMetadata, info types.TextbookInfo) {
	if info.BookName != "" {
		book.FullName = info.BookName
	}
	if info.Publisher != "" {
		book.Publisher = info.Publisher
	}
	if info.Grade != "" {
		book.Grade = info.Grade
	}
}

// MatchesTextbookNaming reports whether the filename stem starts with
// a known book-type code, the convention textbook uploads are
// expected to follow.
func MatchesTextbookNaming(filename string) bool {
	stem := utils.GetFileNameWithoutExt(filename)
	code, _, _ := strings.Cut(stem, "_")
	_, ok := bookTypeNames[code]
	return ok
}

func lookupOrRaw(table map[string]string, code string) string {
	if name, ok := table[code]; ok {
		return name
	}
	return code
}
