package model

import "time"

type SlotKind string

const (
	SlotKindPlain        SlotKind = "plain"        // Открыт для прямой записи клиентом
	SlotKindCampaign     SlotKind = "campaign"     // Зарезервирован под кампанию
	SlotKindOrganization SlotKind = "organization" // Зарезервирован под организацию
)

// SlotClaim описывает один слот расписания вместе с его видом.
// CampaignID заполнен только для kind=campaign, OrganizationID только для
// kind=organization.
type SlotClaim struct {
	Kind           SlotKind  `json:"kind"`
	CampaignID     int64     `json:"campaign_id,omitempty"`
	OrganizationID int64     `json:"organization_id,omitempty"`
	Time           time.Time `json:"time"`
}

// PlainSlot создаёт слот для прямой записи
func PlainSlot(t time.Time) SlotClaim {
	return SlotClaim{Kind: SlotKindPlain, Time: t}
}

// CampaignClaim создаёт слот, зарезервированный под кампанию
func CampaignClaim(campaignID int64, t time.Time) SlotClaim {
	return SlotClaim{Kind: SlotKindCampaign, CampaignID: campaignID, Time: t}
}

// OrganizationClaim создаёт слот, зарезервированный под организацию
func OrganizationClaim(organizationID int64, t time.Time) SlotClaim {
	return SlotClaim{Kind: SlotKindOrganization, OrganizationID: organizationID, Time: t}
}

// CampaignSlot элемент массива campaign_slots
type CampaignSlot struct {
	CampaignID int64     `json:"campaign_id"`
	Time       time.Time `json:"time"`
}

// OrganizationSlot элемент массива organization_slots
type OrganizationSlot struct {
	OrganizationID int64     `json:"organization_id"`
	Time           time.Time `json:"time"`
}

// AvailabilityWeek расписание провайдера на одну календарную неделю.
// Ключ: (ProviderID, WeekStart). Создаётся лениво при первой записи слота.
type AvailabilityWeek struct {
	ID                int64              `json:"id"`
	ProviderID        int64              `json:"provider_id"`
	WeekStart         time.Time          `json:"week_start"`
	Slots             []time.Time        `json:"slots"`
	CampaignSlots     []CampaignSlot     `json:"campaign_slots"`
	OrganizationSlots []OrganizationSlot `json:"organization_slots"`
	CreatedAt         time.Time          `json:"created_at"`
}

// HasSlot проверяет объявлен ли слот в массиве обычных слотов
func (w *AvailabilityWeek) HasSlot(t time.Time) bool {
	if w == nil {
		return false
	}
	for _, s := range w.Slots {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

// Claims разворачивает все три массива недели в плоский список слотов,
// сохраняя порядок внутри каждого массива: обычные, организации, кампании.
func (w *AvailabilityWeek) Claims() []SlotClaim {
	if w == nil {
		return nil
	}
	claims := make([]SlotClaim, 0, len(w.Slots)+len(w.OrganizationSlots)+len(w.CampaignSlots))
	for _, t := range w.Slots {
		claims = append(claims, PlainSlot(t))
	}
	for _, s := range w.OrganizationSlots {
		claims = append(claims, OrganizationClaim(s.OrganizationID, s.Time))
	}
	for _, s := range w.CampaignSlots {
		claims = append(claims, CampaignClaim(s.CampaignID, s.Time))
	}
	return claims
}

// WeekStart нормализует время к началу содержащей его недели
// (понедельник 00:00 UTC). Это ключ бакета для AvailabilityWeek.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}
