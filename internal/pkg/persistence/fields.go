package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Fields is the domain part of a report.
// Keys not known to the struct are kept in Extra and survive a JSON round trip.
type Fields struct {
	ReportDate  string `json:"report_date,omitempty"`
	ReportTime  string `json:"report_time,omitempty"`
	MeetingType string `json:"meeting_type,omitempty"`

	MeetingsHeld     int `json:"meetings_held"`
	AttendeesCount   int `json:"attendees_count"`
	AttendanceTotal  int `json:"attendance_total"`
	AttendanceMale   int `json:"attendance_male"`
	AttendanceFemale int `json:"attendance_female"`

	HealthBCG             int `json:"health_bcg"`
	HealthMeasles         int `json:"health_measles"`
	HealthANCFirstVisit   int `json:"health_anc_first_visit"`
	HealthANCFourthVisit  int `json:"health_anc_fourth_visit"`
	HealthDeliveries      int `json:"health_deliveries"`
	HealthPostnatal       int `json:"health_postnatal"`
	HealthFPNewAcceptors  int `json:"health_fp_new_acceptors"`
	HealthHepBTested      int `json:"health_hepb_tested"`
	HealthHepBPositive    int `json:"health_hepb_positive"`
	HealthTBPresumptive   int `json:"health_tb_presumptive"`
	HealthTBOnTreatment   int `json:"health_tb_on_treatment"`
	MaternalDeaths        int `json:"maternal_deaths"`
	PerinatalDeaths       int `json:"perinatal_deaths"`
	WomenTransportedANC   int `json:"women_transported_anc"`
	WomenTransportedBirth int `json:"women_transported_delivery"`

	IssuesIdentified          string `json:"issues_identified,omitempty"`
	ActionsTaken              string `json:"actions_taken,omitempty"`
	Challenges                string `json:"challenges,omitempty"`
	Recommendations           string `json:"recommendations,omitempty"`
	AdditionalNotes           string `json:"additional_notes,omitempty"`
	MaternalDeathCauses       string `json:"maternal_death_causes,omitempty"`
	TownHallConducted         string `json:"town_hall_conducted,omitempty"`
	CommunityFeedback         string `json:"community_feedback,omitempty"`
	AwarenessTheme            string `json:"awareness_theme,omitempty"`
	TraditionalLeadersSupport string `json:"traditional_leaders_support,omitempty"`
	ReligiousLeadersSupport   string `json:"religious_leaders_support,omitempty"`
	SupportRequired           string `json:"support_required,omitempty"`
	AOB                       string `json:"aob,omitempty"`
	NextMeetingDate           string `json:"next_meeting_date,omitempty"`

	// JSON encoded lists
	ActionTracker json.RawMessage `json:"action_tracker,omitempty"`
	ActionPlan    json.RawMessage `json:"action_plan,omitempty"`
	VDCReports    json.RawMessage `json:"vdc_reports,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type fieldsAlias Fields

// fieldIndex maps json name to struct field index
var fieldIndex = initFieldIndex()

func initFieldIndex() map[string]int {
	res := map[string]int{}
	t := reflect.TypeOf(Fields{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		res[name] = i
	}
	return res
}

// MarshalJSON merges typed fields with Extra
func (f Fields) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(fieldsAlias(f))
	if err != nil || len(f.Extra) == 0 {
		return b, err
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range f.Extra {
		if _, ok := fieldIndex[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON fills typed fields and moves unknown keys to Extra
func (f *Fields) UnmarshalJSON(b []byte) error {
	var res fieldsAlias
	if err := json.Unmarshal(b, &res); err != nil {
		return err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	for k := range m {
		if _, ok := fieldIndex[k]; ok {
			delete(m, k)
		}
	}
	if len(m) > 0 {
		res.Extra = m
	}
	*f = Fields(res)
	return nil
}

// FillText writes value to the named text field if the field is empty.
// Returns false if the field already holds a value.
func (f *Fields) FillText(name, value string) (bool, error) {
	i, typed := fieldIndex[name]
	if typed && reflect.ValueOf(f).Elem().Field(i).Kind() != reflect.String {
		return false, fmt.Errorf("field '%s' is not a text field", name)
	}
	if !f.IsEmpty(name) {
		return false, nil
	}
	if typed {
		reflect.ValueOf(f).Elem().Field(i).SetString(value)
		return true, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("can't marshal value: %w", err)
	}
	if f.Extra == nil {
		f.Extra = map[string]json.RawMessage{}
	}
	f.Extra[name] = b
	return true, nil
}

// IsEmpty checks if the named field holds no value
func (f *Fields) IsEmpty(name string) bool {
	if i, ok := fieldIndex[name]; ok {
		fv := reflect.ValueOf(f).Elem().Field(i)
		switch fv.Kind() {
		case reflect.String:
			return strings.TrimSpace(fv.String()) == ""
		case reflect.Slice:
			return isEmptyJSON(fv.Bytes())
		default:
			return fv.IsZero()
		}
	}
	return isEmptyJSON(f.Extra[name])
}

func isEmptyJSON(b json.RawMessage) bool {
	v := string(bytes.TrimSpace(b))
	switch v {
	case "", "null", `""`, "0", "false", "[]", "{}":
		return true
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return strings.TrimSpace(s) == ""
	}
	return false
}
