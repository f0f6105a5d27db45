// 包 output 负责将过滤后的记录序列写为三种产物（xlsx/csv/json）。
// 三种格式共用 model.Header/Cells 的列映射，仅容器语法不同，
// 保证各格式的字段值与列顺序完全一致。
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"go-baidu-hotboard/internal/model"
)

// RunDir 在 base 下创建本次运行的时间戳目录 <prefix>_<YYYYMMDD_HHMMSS>，
// 返回目录路径与时间戳。目录名与记录的 fetched_at 使用同一次时钟读取。
func RunDir(base, prefix string, now time.Time) (string, string, error) {
	stamp := now.Format("20060102_150405")
	dir := filepath.Join(base, fmt.Sprintf("%s_%s", prefix, stamp))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, stamp, nil
}

// WriteAll 按 formats 给定的顺序依次写出产物，返回实际生成的文件路径。
// 空记录集时 csv 跳过（不产生文件），xlsx/json 仍写出仅含表头/空数组的产物。
func WriteAll(records []model.Record, dir, prefix, stamp string, formats []string) ([]string, error) {
	var files []string
	for _, format := range formats {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, stamp, format))
		var err error
		switch format {
		case "xlsx":
			err = Excel(records, path)
		case "csv":
			if len(records) == 0 {
				continue
			}
			err = CSV(records, path)
		case "json":
			err = JSON(records, path)
		default:
			err = fmt.Errorf("unsupported format: %q", format)
		}
		if err != nil {
			return files, fmt.Errorf("write %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

// utf8BOM 使常见表格软件（Excel/WPS）正确识别 csv 中的中文。
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV 写出带 UTF-8 BOM 的逗号分隔文本，首行为列名。
// 空记录集不产生文件（显式跳过而非写出空文件）。
func CSV(records []model.Record, path string) error {
	if len(records) == 0 {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(model.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := make([]string, 0, len(model.Header()))
		for _, c := range r.Cells() {
			row = append(row, fmt.Sprint(c))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// JSON 写出缩进格式的记录数组，中文等非 ASCII 字符保持原样不转义。
// 空记录集写出合法的空数组而非 null。
func JSON(records []model.Record, path string) error {
	if records == nil {
		records = []model.Record{}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// SheetName 为 xlsx 工作表名。
const SheetName = "热搜榜"

// 各列的固定显示宽度：title/brief/link 为宽列，rank/tag/trend 为窄列。
var colWidths = []float64{6, 42, 10, 12, 66, 50, 8, 20, 30}

// 正文居中的列（rank/heat/trend），其余列左对齐并自动换行。
var centeredCols = map[int]bool{0: true, 2: true, 6: true}

// Excel 写出带样式的工作簿：表头加粗居中，正文按列对齐，列宽固定。
// 单元格值不做任何转换，与 csv/json 逐格一致。
func Excel(records []model.Record, path string) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	centerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("center style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("wrap style: %w", err)
	}

	header := model.Header()
	for i, name := range header {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(SheetName, col, col, colWidths[i]); err != nil {
			return fmt.Errorf("col width %s: %w", col, err)
		}
		cell := col + "1"
		if err := f.SetCellValue(SheetName, cell, name); err != nil {
			return fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header %s: %w", cell, err)
		}
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := r.Cells()
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("set row %d: %w", i+2, err)
		}
	}
	if n := len(records); n > 0 {
		for i := range header {
			col, _ := excelize.ColumnNumberToName(i + 1)
			style := wrapStyle
			if centeredCols[i] {
				style = centerStyle
			}
			if err := f.SetCellStyle(SheetName, col+"2", fmt.Sprintf("%s%d", col, n+1), style); err != nil {
				return fmt.Errorf("style col %s: %w", col, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx %s: %w", path, err)
	}
	return nil
}
