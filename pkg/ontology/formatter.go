// Package ontology formats normalized records into the SMB ontology
// contract consumed downstream. Each input record yields a canonical
// ontology record plus a provenance metadata record.
package ontology

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ontoforge/ontoforge/internal/model"
	"github.com/ontoforge/ontoforge/pkg/normalize"
)

// stateAbbreviations maps full state names to USPS codes.
var stateAbbreviations = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"district of columbia": "DC", "florida": "FL", "georgia": "GA",
	"hawaii": "HI", "idaho": "ID", "illinois": "IL", "indiana": "IN",
	"iowa": "IA", "kansas": "KS", "kentucky": "KY", "louisiana": "LA",
	"maine": "ME", "maryland": "MD", "massachusetts": "MA", "michigan": "MI",
	"minnesota": "MN", "mississippi": "MS", "missouri": "MO", "montana": "MT",
	"nebraska": "NE", "nevada": "NV", "new hampshire": "NH", "new jersey": "NJ",
	"new mexico": "NM", "new york": "NY", "north carolina": "NC",
	"north dakota": "ND", "ohio": "OH", "oklahoma": "OK", "oregon": "OR",
	"pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// corporateSuffixes are legal-form tokens stripped from brand names.
// Tokens arrive dotless because stripNoise folds punctuation to spaces.
var corporateSuffixes = map[string]struct{}{
	"LLC": {}, "INC": {}, "CO": {}, "CORP": {},
	"CORPORATION": {}, "COMPANY": {}, "LTD": {},
}

var (
	nameNoiseRe  = regexp.MustCompile(`[^A-Za-z0-9&' ]+`)
	wsRe         = regexp.MustCompile(`\s+`)
	digitsOnlyRe = regexp.MustCompile(`\D`)
)

// Formatter converts normalized records for one provider dataset.
type Formatter struct {
	Provider   string
	SourcePath string

	now func() time.Time
}

// NewFormatter returns a formatter for one provider source.
func NewFormatter(provider, sourcePath string) *Formatter {
	return &Formatter{Provider: provider, SourcePath: sourcePath, now: time.Now}
}

// FormatRecords converts a batch, returning parallel slices of ontology and
// metadata records.
func (f *Formatter) FormatRecords(records []*model.Record) (ontology, metadata []*model.Record) {
	ontology = make([]*model.Record, 0, len(records))
	metadata = make([]*model.Record, 0, len(records))
	for _, rec := range records {
		o, m := f.FormatRecord(rec)
		ontology = append(ontology, o)
		metadata = append(metadata, m)
	}
	return ontology, metadata
}

// FormatRecord converts one normalized record into the ontology schema plus
// its provenance metadata.
func (f *Formatter) FormatRecord(rec *model.Record) (*model.Record, *model.Record) {
	cleaned := normalize.CleanRecord(rec)

	legalName := normalizeLegalName(firstText(cleaned, "legal_name", "business_name", "entity_name"))
	brandName := normalizeBrandName(firstText(cleaned, "brand_name", "business_name_2", "doing_business_as", "dba", "business_name"))
	dbaName := normalizeLegalName(firstText(cleaned, "business_name_2", "dba", "dba_name"))
	aliases := buildAliases(
		textAt(cleaned, "business_name"),
		textAt(cleaned, "business_name_2"),
		textAt(cleaned, "dba"),
	)
	category := titleCase(textAt(cleaned, "industry"))

	street := buildStreetAddress(cleaned)
	city := titleCase(firstText(cleaned, "address_city", "city"))
	state := normalizeState(firstText(cleaned, "address_state", "state"))
	zip5, zip4 := normalizeZip(textAt(cleaned, "zip_code"))
	lat := normalizeCoordinate(cleaned, "latitude", -90, 90)
	lon := normalizeCoordinate(cleaned, "longitude", -180, 180)
	phone := normalizePhone(firstText(cleaned, "contact_phone_number", "phone", "phone_number"))

	canonicalAddr := joinNonEmpty(", ", street, city, state, zip5)

	entityStatus := normalizeEntityStatus(textAt(cleaned, "license_status"))
	stateOfIncorp := state
	if stateOfIncorp == "" {
		stateOfIncorp = normalizeState(textAt(cleaned, "state_of_incorporation"))
	}
	ein := normalizeEIN(textAt(cleaned, "ein"))
	providerRecordID := providerRecordID(cleaned)

	brand := brandName
	if brand == "" {
		brand = legalName
	}

	out := model.NewRecord()
	out.Set("canonical_legal_entity_name", textValue(legalName))
	out.Set("canonical_brand_name", textValue(brand))
	out.Set("brand_aliases", aliasValue(aliases))
	out.Set("category", textValue(category))
	out.Set("dba_name", textValue(dbaName))
	out.Set("entity_status", textValue(entityStatus))
	out.Set("state_of_incorporation", textValue(stateOfIncorp))
	out.Set("ein", textValue(ein))
	out.Set("street_address", textValue(street))
	out.Set("city", textValue(city))
	out.Set("state", textValue(state))
	out.Set("zip_code", textValue(zip5))
	out.Set("zip_plus_4", textValue(zip4))
	out.Set("canonical_address", textValue(canonicalAddr))
	out.Set("latitude", lat)
	out.Set("longitude", lon)
	out.Set("phone_number", textValue(phone))
	out.Set("provider", model.String(f.Provider))
	out.Set("provider_record_id", textValue(providerRecordID))

	meta := model.NewRecord()
	meta.Set("provider", model.String(f.Provider))
	meta.Set("provider_record_id", textValue(providerRecordID))
	meta.Set("provider_path", model.String(f.SourcePath))
	meta.Set("ingested_at", model.String(f.now().UTC().Format(time.RFC3339)))
	meta.Set("raw_record", model.Object(cleaned))

	return out, meta
}

func normalizeLegalName(value string) string {
	if value == "" {
		return ""
	}
	return titleCase(stripNoise(value))
}

// normalizeBrandName drops trailing legal-form suffixes so "Acme Corp" and
// "Acme LLC" collapse to the same brand.
func normalizeBrandName(value string) string {
	if value == "" {
		return ""
	}
	name := stripNoise(value)
	tokens := strings.Fields(name)
	for len(tokens) > 0 {
		last := strings.ToUpper(strings.ReplaceAll(tokens[len(tokens)-1], ".", ""))
		if _, ok := corporateSuffixes[last]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	cleaned := strings.Join(tokens, " ")
	if cleaned == "" {
		cleaned = name
	}
	return titleCase(cleaned)
}

func stripNoise(value string) string {
	value = strings.ReplaceAll(value, "&", " & ")
	value = nameNoiseRe.ReplaceAllString(value, " ")
	return strings.TrimSpace(wsRe.ReplaceAllString(value, " "))
}

func titleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	words := strings.Fields(strings.ToLower(value))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func buildAliases(values ...string) []string {
	var aliases []string
	for _, v := range values {
		normalized := normalizeBrandName(v)
		if normalized == "" {
			continue
		}
		seen := false
		for _, a := range aliases {
			if a == normalized {
				seen = true
				break
			}
		}
		if !seen {
			aliases = append(aliases, normalized)
		}
	}
	return aliases
}

// buildStreetAddress assembles building/street/secondary segments, falling
// back to any pre-composed address column.
func buildStreetAddress(rec *model.Record) string {
	var parts []string
	for _, key := range []string{"address_building", "address_street_name", "secondary_address_street_name"} {
		if v := textAt(rec, key); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		return strings.ToUpper(wsRe.ReplaceAllString(strings.Join(parts, " "), " "))
	}
	for _, key := range []string{"street_address", "address", "mailing_address", "mail_address"} {
		if v := textAt(rec, key); v != "" {
			return strings.ToUpper(wsRe.ReplaceAllString(v, " "))
		}
	}
	return ""
}

func normalizeState(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}
	if len(text) == 2 && isAlpha(text) {
		return strings.ToUpper(text)
	}
	return stateAbbreviations[strings.ToLower(text)]
}

func normalizeZip(value string) (string, string) {
	text := strings.TrimSpace(value)
	switch {
	case len(text) == 10 && strings.Contains(text, "-"):
		left, right, _ := strings.Cut(text, "-")
		if len(left) >= 5 && len(right) >= 4 {
			return left[:5], right[:4]
		}
		return "", ""
	case len(text) == 9 && isDigits(text):
		return text[:5], text[5:]
	case len(text) == 5 && isDigits(text):
		return text, ""
	default:
		return "", ""
	}
}

func normalizeCoordinate(rec *model.Record, key string, lower, upper float64) model.Value {
	v, ok := rec.Get(key)
	if !ok || v.IsMissing() {
		return model.Null
	}
	f, ok := v.AsFloat()
	if !ok || f < lower || f > upper {
		return model.Null
	}
	return model.Number(f)
}

func normalizePhone(value string) string {
	digits := digitsOnlyRe.ReplaceAllString(value, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return digits
}

func normalizeEntityStatus(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func normalizeEIN(value string) string {
	digits := digitsOnlyRe.ReplaceAllString(value, "")
	if len(digits) != 9 {
		return ""
	}
	return digits
}

// providerRecordID picks the most stable identifier the provider offers.
func providerRecordID(rec *model.Record) string {
	for _, key := range []string{
		"provider_record_id", "dca_license_number", "license_number",
		"license_id", "record_id", "record_number", "id",
	} {
		if v := textAt(rec, key); v != "" {
			return v
		}
	}
	return ""
}

func firstText(rec *model.Record, keys ...string) string {
	for _, key := range keys {
		if v := textAt(rec, key); v != "" {
			return v
		}
	}
	return ""
}

func textAt(rec *model.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v.IsMissing() {
		return ""
	}
	switch v.Kind() {
	case model.KindString:
		return strings.TrimSpace(v.Str())
	case model.KindNumber:
		return strconv.FormatFloat(v.Number(), 'f', -1, 64)
	default:
		return ""
	}
}

func textValue(s string) model.Value {
	if s == "" {
		return model.Null
	}
	return model.String(s)
}

func aliasValue(aliases []string) model.Value {
	items := make([]model.Value, 0, len(aliases))
	for _, a := range aliases {
		items = append(items, model.String(a))
	}
	return model.List(items...)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
