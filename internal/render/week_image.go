package render

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"consultbooking/internal/model"
)

// Константы размеров и отступов
const (
	imageWidth      = 1400
	imageHeight     = 900
	headerHeight    = 100
	leftLabelsWidth = 80
	legendWidth     = 160
	dayPaddingX     = 8
	slotHeightFrac  = 0.85 // доля часовой ячейки под блок слота
	totalDaysInWeek = 7
	defaultMinHour  = 8
	defaultMaxHour  = 18
)

// Цветовая схема
var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	hourLabelColor = color.RGBA{110, 115, 120, 200}
	hourLineColor  = color.NRGBA{150, 150, 150, 255}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{220, 220, 220, 255}

	slotPlainColor        = color.RGBA{133, 193, 85, 220}  // Зелёный для открытых слотов
	slotCampaignColor     = color.RGBA{255, 176, 92, 230}  // Оранжевый для кампаний
	slotOrganizationColor = color.RGBA{108, 160, 220, 230} // Синий для организаций
	slotTextColor         = color.RGBA{20, 24, 28, 230}

	legendTextColor = color.RGBA{90, 95, 100, 220}
)

type hourRange struct {
	start int
	end   int
	total int
}

// WeekImage рисует календарь недели доступности провайдера: по колонке на
// день, блоки слотов раскрашены по виду (обычный/кампания/организация).
func WeekImage(week *model.AvailabilityWeek) ([]byte, error) {
	if week == nil {
		return nil, fmt.Errorf("render week image: week is nil")
	}

	claims := week.Claims()
	claimsByDay := groupClaimsByDay(week.WeekStart, claims)
	hours := calculateHourRange(claims)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)
	drawDays(dc, week.WeekStart, claimsByDay, hours, dayWidth, cellHeight)
	drawLegend(dc)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode week image: %w", err)
	}
	return buf.Bytes(), nil
}

// groupClaimsByDay раскладывает слоты по дням недели (0 = понедельник)
func groupClaimsByDay(weekStart time.Time, claims []model.SlotClaim) map[int][]model.SlotClaim {
	byDay := make(map[int][]model.SlotClaim)
	for _, claim := range claims {
		day := int(claim.Time.UTC().Sub(weekStart).Hours() / 24)
		if day < 0 || day >= totalDaysInWeek {
			continue
		}
		byDay[day] = append(byDay[day], claim)
	}
	return byDay
}

// calculateHourRange определяет диапазон часов для отображения
func calculateHourRange(claims []model.SlotClaim) hourRange {
	minHour := 24
	maxHour := -1

	for _, claim := range claims {
		h := claim.Time.UTC().Hour()
		if h < minHour {
			minHour = h
		}
		if h > maxHour {
			maxHour = h
		}
	}

	if maxHour < 0 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	// Час запаса сверху и снизу, в пределах суток
	if minHour > 0 {
		minHour--
	}
	if maxHour < 23 {
		maxHour++
	}

	return hourRange{start: minHour, end: maxHour, total: maxHour - minHour + 1}
}

func drawHeader(dc *gg.Context, week *model.AvailabilityWeek) {
	dc.SetColor(textColor)
	title := fmt.Sprintf("Provider %d - week of %s",
		week.ProviderID,
		week.WeekStart.Format("02.01.2006"),
	)
	dc.DrawStringAnchored(title, imageWidth/2, headerHeight/3, 0.5, 0.5)

	days := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	for i, day := range days {
		date := week.WeekStart.AddDate(0, 0, i)
		x := float64(leftLabelsWidth + i*dayWidth + dayWidth/2)
		dc.DrawStringAnchored(fmt.Sprintf("%s %s", day, date.Format("02.01")), x, headerHeight*2/3, 0.5, 0.5)
	}
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	dc.SetColor(hourLabelColor)
	for h := hours.start; h <= hours.end; h++ {
		y := float64(headerHeight) + float64(h-hours.start)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", h), leftLabelsWidth/2, y+cellHeight/2, 0.5, 0.5)

		dc.SetColor(hourLineColor)
		dc.DrawLine(leftLabelsWidth, y, imageWidth-legendWidth, y)
		dc.Stroke()
		dc.SetColor(hourLabelColor)
	}
}

func drawDays(dc *gg.Context, weekStart time.Time, claimsByDay map[int][]model.SlotClaim, hours hourRange, dayWidth int, cellHeight float64) {
	for day := 0; day < totalDaysInWeek; day++ {
		x := float64(leftLabelsWidth + day*dayWidth)

		// Фон колонки, чередуем оттенки для читаемости
		if day%2 == 0 {
			dc.SetColor(evenDayColor)
		} else {
			dc.SetColor(oddDayColor)
		}
		dc.DrawRectangle(x, headerHeight, float64(dayWidth), float64(imageHeight-headerHeight))
		dc.Fill()

		for _, claim := range claimsByDay[day] {
			drawClaim(dc, claim, x, hours, dayWidth, cellHeight)
		}
	}
}

func drawClaim(dc *gg.Context, claim model.SlotClaim, dayX float64, hours hourRange, dayWidth int, cellHeight float64) {
	t := claim.Time.UTC()
	offset := float64(t.Hour()-hours.start) + float64(t.Minute())/60
	if offset < 0 {
		return
	}
	y := float64(headerHeight) + offset*cellHeight

	switch claim.Kind {
	case model.SlotKindCampaign:
		dc.SetColor(slotCampaignColor)
	case model.SlotKindOrganization:
		dc.SetColor(slotOrganizationColor)
	default:
		dc.SetColor(slotPlainColor)
	}
	dc.DrawRoundedRectangle(dayX+dayPaddingX, y, float64(dayWidth-2*dayPaddingX), cellHeight*slotHeightFrac, 6)
	dc.Fill()

	dc.SetColor(slotTextColor)
	label := t.Format("15:04")
	switch claim.Kind {
	case model.SlotKindCampaign:
		label = fmt.Sprintf("%s C%d", label, claim.CampaignID)
	case model.SlotKindOrganization:
		label = fmt.Sprintf("%s O%d", label, claim.OrganizationID)
	}
	dc.DrawStringAnchored(label, dayX+float64(dayWidth)/2, y+cellHeight*slotHeightFrac/2, 0.5, 0.5)
}

func drawLegend(dc *gg.Context) {
	entries := []struct {
		label string
		col   color.Color
	}{
		{"open", slotPlainColor},
		{"campaign", slotCampaignColor},
		{"organization", slotOrganizationColor},
	}

	x := float64(imageWidth - legendWidth + 12)
	y := float64(headerHeight + 16)
	for _, entry := range entries {
		dc.SetColor(entry.col)
		dc.DrawRectangle(x, y, 14, 14)
		dc.Fill()

		dc.SetColor(legendTextColor)
		dc.DrawStringAnchored(entry.label, x+22, y+7, 0, 0.5)
		y += 26
	}
}
