// Package resume は履歴書データをWord文書（.docx）に変換する。
package resume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
)

// ContentType は.docxのMIMEタイプ。
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Resume は履歴書の内容。
type Resume struct {
	Contact    Contact      `json:"contact"`
	Summary    string       `json:"summary"`
	Experience []Experience `json:"experience"`
	Skills     Skills       `json:"skills"`
}

// Contact は連絡先。
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location"`
	Phone    string `json:"phone"`
}

// Experience は職歴1件。
type Experience struct {
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Duration string   `json:"duration"`
	Bullets  []string `json:"bullets"`
}

// Skills はスキルの一覧。
type Skills struct {
	Technical []string `json:"technical"`
	Soft      []string `json:"soft"`
}

// Render は履歴書を.docxのバイト列に変換する。
// 見出し（氏名・Summary・Experience・Skills）と箇条書きの職歴で構成する。
func Render(r *Resume) ([]byte, error) {
	if r == nil {
		return nil, errors.New("履歴書が指定されていません")
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("文書の作成に失敗: %w", err)
	}

	doc.AddHeading(r.Contact.Name, 1)
	doc.AddParagraph(strings.Join([]string{r.Contact.Email, r.Contact.Location, r.Contact.Phone}, " | "))

	doc.AddHeading("Summary", 2)
	doc.AddParagraph(r.Summary)

	doc.AddHeading("Experience", 2)
	for _, exp := range r.Experience {
		p := doc.AddParagraph("")
		p.AddText(exp.Title + " | " + exp.Company).Bold(true)
		p.AddText("\t" + exp.Duration)
		for _, b := range exp.Bullets {
			doc.AddParagraph(b).Style("List Bullet")
		}
	}

	doc.AddHeading("Skills", 2)
	technical := doc.AddParagraph("")
	technical.AddText("Technical: ").Bold(true)
	technical.AddText(strings.Join(r.Skills.Technical, ", "))
	soft := doc.AddParagraph("")
	soft.AddText("Soft: ").Bold(true)
	soft.AddText(strings.Join(r.Skills.Soft, ", "))

	// SaveToはファイルパスを受け取るため、一時ディレクトリを経由する
	dir, err := os.MkdirTemp("", "resume-*")
	if err != nil {
		return nil, fmt.Errorf("一時ディレクトリの作成に失敗: %w", err)
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	path := filepath.Join(dir, "resume.docx")
	if err := doc.SaveTo(path); err != nil {
		return nil, fmt.Errorf("文書の保存に失敗: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("文書の読み込みに失敗: %w", err)
	}
	return data, nil
}
