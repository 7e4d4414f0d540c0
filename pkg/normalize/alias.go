// Package normalize maps provider-specific column names onto the shared
// ontology vocabulary and applies regex-based value cleanup. It runs before
// profiling; the profiling core never re-standardizes names.
package normalize

import (
	"regexp"
	"strings"

	"github.com/ontoforge/ontoforge/internal/model"
)

var (
	spaceRun      = regexp.MustCompile(`\s+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// StandardizeKey folds a provider header into snake_case so it can be matched
// against the alias table: punctuation becomes spaces, runs collapse, result
// is lowercased.
func StandardizeKey(col string) string {
	s := strings.TrimSpace(col)
	replacer := strings.NewReplacer(
		"-", " ", ".", " ", "/", " ", ",", " ",
		"?", " ", "!", " ", "@", " ", "%", " ", "&", " ",
	)
	s = replacer.Replace(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.ToLower(strings.ReplaceAll(s, " ", "_"))
	s = underscoreRun.ReplaceAllString(s, "_")
	return strings.TrimRight(s, "_")
}

// rawAliases maps provider headers (pre-standardization) to canonical
// ontology names. Keys are standardized once at init.
var rawAliases = map[string]string{
	// Business identity
	"Business Name":           "business_name",
	"Entity Name":             "business_name",
	"Company Name":            "business_name",
	"Legal Business Name":     "business_name",
	"Registered Name":         "business_name",
	"Legal Name":              "business_name",
	"Name":                    "business_name",
	"Organization Name":       "business_name",
	"DBA":                     "dba",
	"Doing Business As":       "dba",
	"Trade Name":              "dba",
	"Fictitious Name":         "dba",
	"Assumed Name":            "dba",

	// People
	"First Name":    "first_name",
	"Given Name":    "first_name",
	"Middle Name":   "middle_name",
	"Last Name":     "last_name",
	"Surname":       "last_name",
	"Full Name":     "full_name",
	"Contact Name":  "contact_name",
	"Owner":         "owner_name",
	"Owner Name":    "owner_name",
	"Officer Name":  "officer_name",

	// License / permit / registration
	"License Number":      "license_number",
	"License #":           "license_number",
	"License No":          "license_number",
	"DCA License Number":  "license_number",
	"Permit Number":       "license_number",
	"Registration Number": "license_number",
	"Certificate Number":  "license_number",
	"License Type":        "license_type",
	"Permit Type":         "license_type",
	"License Class":       "license_type",
	"License Status":      "license_status",
	"Permit Status":       "license_status",
	"Status":              "license_status",
	"Current Status":      "license_status",
	"Issue Date":          "issue_date",
	"Issued Date":         "issue_date",
	"License Issue Date":  "issue_date",
	"Expiration Date":     "expiration_date",
	"Expiry Date":         "expiration_date",
	"License Expiration Date": "expiration_date",
	"Renewal Date":            "renewal_date",
	"Effective Date":          "effective_date",

	// Identifiers
	"EIN":                            "ein",
	"FEIN":                           "ein",
	"Employer Identification Number": "ein",
	"Tax ID":                         "ein",
	"BIN":                            "bin",
	"Entity ID":                      "entity_id",
	"Business ID":                    "entity_id",
	"Record Number":                  "record_number",
	"Unique ID":                      "record_number",
	"ID":                             "id",
	"Identifier":                     "id",
	"Object ID":                      "id",

	// Dates
	"Created Date":  "created_date",
	"Date Created":  "created_date",
	"Filing Date":   "file_date",
	"Updated Date":  "updated_date",
	"Last Updated":  "updated_date",
	"Start Date":    "start_date",
	"End Date":      "end_date",
	"Closed Date":   "end_date",
	"Inactive Date": "inactive_date",

	// Address components
	"Building":            "building_number",
	"Building Number":     "building_number",
	"House Number":        "building_number",
	"Address Building":    "building_number",
	"Street":              "street_name",
	"Street Name":         "street_name",
	"Address Street Name": "street_name",
	"Address":             "address",
	"Street Address":      "address",
	"Address Line 1":      "address",
	"Business Address":    "address",
	"Address 2":           "address2",
	"Address Line 2":      "address2",
	"Suite":               "address2",
	"Apartment":           "address2",
	"Unit":                "address2",
	"City":                "city",
	"Town":                "city",
	"Municipality":        "city",
	"Address City":        "city",
	"State":               "state",
	"Address State":       "state",
	"Province":            "state",
	"County":              "county",
	"Borough":             "borough",
	"Address Borough":     "borough",
	"District":            "district",
	"Location":            "address",
	"location":            "location",
	"cord_pair":           "location",

	// ZIP / postal
	"ZIP":         "zip_code",
	"Zip Code":    "zip_code",
	"zipcode":     "zip_code",
	"Postal Code": "zip_code",
	"Postcode":    "zip_code",
	"Address ZIP": "zip_code",
	"Zip+4":       "zip4",

	// Coordinates
	"Latitude":                 "latitude",
	"Lat":                      "latitude",
	"Y Coordinate":             "latitude",
	"Y Coordinate (Latitude)":  "latitude",
	"Geo Latitude":             "latitude",
	"Longitude":                "longitude",
	"Long":                     "longitude",
	"Lon":                      "longitude",
	"lng":                      "longitude",
	"X Coordinate":             "longitude",
	"X Coordinate (Longitude)": "longitude",
	"Geo Longitude":            "longitude",

	// Contact
	"Phone":                "phone",
	"Phone Number":         "phone",
	"Contact Number":       "phone",
	"Business Phone":       "phone",
	"Telephone":            "phone",
	"Contact Phone Number": "phone",
	"Fax":                  "fax",
	"Email":                "email",
	"E-mail":               "email",
	"Email Address":        "email",
	"Website":              "website",
	"URL":                  "website",
	"Web Address":          "website",

	// Industry / codes
	"Industry":          "industry",
	"Business Category": "industry",
	"Category":          "industry",
	"NAICS":             "naics",
	"NAICS Code":        "naics",
	"SIC":               "sic",
	"SIC Code":          "sic",
	"Business Type":     "business_type",
	"Entity Type":       "entity_type",

	// Description / notes
	"Description": "description",
	"Notes":       "notes",
	"Remarks":     "notes",
	"Comments":    "notes",

	// Numeric / size
	"Employees":           "num_employees",
	"Number of Employees": "num_employees",
	"Revenue":             "revenue",
	"Annual Revenue":      "revenue",
	"Sales Volume":        "revenue",
	"Square Footage":      "sq_ft",

	// Status / jurisdiction
	"Operating Status": "operating_status",
	"Active":           "is_active",
	"Jurisdiction":     "jurisdiction",
	"Community Board":  "community_board",
	"Council District": "council_district",
}

// aliases is the standardized-key lookup built from rawAliases.
var aliases = func() map[string]string {
	out := make(map[string]string, len(rawAliases))
	for alias, canonical := range rawAliases {
		out[StandardizeKey(alias)] = canonical
	}
	return out
}()

// CanonicalName resolves one header to its canonical ontology name; headers
// without an alias keep their standardized form.
func CanonicalName(header string) string {
	key := StandardizeKey(header)
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}

// MapAliases returns a copy of the record with every column renamed to its
// canonical name. When two provider columns collapse onto the same canonical
// name, the first non-missing value wins and the later column is dropped.
func MapAliases(rec *model.Record) *model.Record {
	out := model.NewRecord()
	for _, name := range rec.Columns() {
		v, _ := rec.Get(name)
		canonical := CanonicalName(name)
		if existing, ok := out.Get(canonical); ok {
			if existing.IsMissing() && !v.IsMissing() {
				out.Set(canonical, v)
			}
			continue
		}
		out.Set(canonical, v)
	}
	return out
}
