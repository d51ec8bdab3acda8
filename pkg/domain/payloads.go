package domain

import "encoding/json"

// WhoisPayload holds parsed registration data for a domain. Empty strings and
// nil slices mean the registry did not report the field.
type WhoisPayload struct {
	DomainName          string   `json:"domain_name,omitempty"`
	Registrar           string   `json:"registrar,omitempty"`
	CreationDate        string   `json:"creation_date,omitempty"`
	ExpirationDate      string   `json:"expiration_date,omitempty"`
	UpdatedDate         string   `json:"updated_date,omitempty"`
	NameServers         []string `json:"name_servers,omitempty"`
	Status              []string `json:"status,omitempty"`
	Org                 string   `json:"org,omitempty"`
	Country             string   `json:"country,omitempty"`
	DNSSEC              string   `json:"dnssec,omitempty"`
	RegistrarAbuseEmail string   `json:"registrar_abuse_email,omitempty"`
	RawText             string   `json:"raw_text,omitempty"`
}

// Module implements Payload.
func (*WhoisPayload) Module() Module { return ModuleWhois }

// DNSAnswer is the outcome of resolving one record type: either the list of
// answers or the error the resolver returned. Only the list form carries data.
type DNSAnswer struct {
	Values []string
	Error  string
}

// DNSValues builds the list form of a DNS answer.
func DNSValues(values ...string) DNSAnswer {
	if values == nil {
		values = []string{}
	}

	return DNSAnswer{Values: values}
}

// DNSError builds the error form of a DNS answer.
func DNSError(err error) DNSAnswer {
	return DNSAnswer{Error: err.Error()}
}

// IsList reports whether the answer is the plain list form.
func (a DNSAnswer) IsList() bool {
	return a.Error == "" && a.Values != nil
}

// MarshalJSON encodes the list form as a JSON array and the error form as
// {"error": "..."}.
func (a DNSAnswer) MarshalJSON() ([]byte, error) {
	if a.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{a.Error})
	}
	values := a.Values
	if values == nil {
		values = []string{}
	}

	return json.Marshal(values)
}

// UnmarshalJSON accepts both the array and the error object forms. Any other
// value decodes as the error form, so one bad record type never costs the
// rest of the payload.
func (a *DNSAnswer) UnmarshalJSON(b []byte) error {
	var values []string
	if err := json.Unmarshal(b, &values); err == nil {
		*a = DNSValues(values...)

		return nil
	}

	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil || obj.Error == "" {
		*a = DNSAnswer{Error: "malformed answer"}

		return nil //nolint: nilerr
	}
	*a = DNSAnswer{Error: obj.Error}

	return nil
}

// DNS record types queried by the DNS module.
const (
	RecordA    = "A"
	RecordAAAA = "AAAA"
	RecordMX   = "MX"
	RecordNS   = "NS"
	RecordTXT  = "TXT"
)

// DNSPayload holds the answers per record type for the queried domain.
type DNSPayload struct {
	Records map[string]DNSAnswer `json:"records,omitempty"`
}

// Module implements Payload.
func (*DNSPayload) Module() Module { return ModuleDNS }

// HTTPMetaPayload describes the first reachable HTTP(S) endpoint of a domain.
type HTTPMetaPayload struct {
	FinalURL   string            `json:"final_url,omitempty"`
	StatusCode int               `json:"status_code,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Title      string            `json:"title,omitempty"`
	MetaTags   map[string]string `json:"meta_tags,omitempty"`
	Robots     string            `json:"robots,omitempty"`
}

// Module implements Payload.
func (*HTTPMetaPayload) Module() Module { return ModuleHTTPMeta }

// ShodanService is one service banner reported for a host.
type ShodanService struct {
	Port      int    `json:"port,omitempty"`
	Transport string `json:"transport,omitempty"`
	Product   string `json:"product,omitempty"`
	Version   string `json:"version,omitempty"`
	Banner    string `json:"banner,omitempty"`
}

// ShodanPayload holds host information for an IP address.
type ShodanPayload struct {
	IP            string          `json:"ip,omitempty"`
	Organization  string          `json:"organization,omitempty"`
	ISP           string          `json:"isp,omitempty"`
	ASN           string          `json:"asn,omitempty"`
	Country       string          `json:"country,omitempty"`
	City          string          `json:"city,omitempty"`
	Hostnames     []string        `json:"hostnames,omitempty"`
	Domains       []string        `json:"domains,omitempty"`
	Ports         []int           `json:"ports,omitempty"`
	Vulns         []string        `json:"vulns,omitempty"`
	LastUpdate    string          `json:"last_update,omitempty"`
	TotalServices int             `json:"total_services,omitempty"`
	Services      []ShodanService `json:"services,omitempty"`
}

// Module implements Payload.
func (*ShodanPayload) Module() Module { return ModuleShodanHost }

// SiteCheck is the result of checking one profile URL. Exists is nil when the
// check could not tell (network error, timeout).
type SiteCheck struct {
	URL    string `json:"url"`
	Exists *bool  `json:"exists"`
}

// Confirmed reports whether the profile was confirmed to exist.
func (s SiteCheck) Confirmed() bool {
	return s.Exists != nil && *s.Exists
}

// UsernamePayload holds the check results for every checked site.
type UsernamePayload struct {
	Sites []SiteCheck `json:"sites,omitempty"`
}

// Module implements Payload.
func (*UsernamePayload) Module() Module { return ModuleUsernameCheck }

// PhonePayload holds number validation data for a phone number.
type PhonePayload struct {
	Number              string `json:"number,omitempty"`
	Valid               bool   `json:"valid"`
	LocalFormat         string `json:"local_format,omitempty"`
	InternationalFormat string `json:"international_format,omitempty"`
	CountryPrefix       string `json:"country_prefix,omitempty"`
	CountryCode         string `json:"country_code,omitempty"`
	CountryName         string `json:"country_name,omitempty"`
	Location            string `json:"location,omitempty"`
	Carrier             string `json:"carrier,omitempty"`
	LineType            string `json:"line_type,omitempty"`
}

// Module implements Payload.
func (*PhonePayload) Module() Module { return ModulePhoneLookup }

// Image processing statuses reported per file by the EXIF module.
const (
	ImageStatusSuccess = "success"
	ImageStatusError   = "error"
)

// GPSInfo holds decimal GPS coordinates. A nil coordinate was not present.
type GPSInfo struct {
	Latitude  *float64 `json:"latitude_decimal,omitempty"`
	Longitude *float64 `json:"longitude_decimal,omitempty"`
}

// FileInfo describes an analyzed image file.
type FileInfo struct {
	Filename      string `json:"filename"`
	Format        string `json:"format,omitempty"`
	SizePixels    string `json:"size_pixels,omitempty"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// ImageMetadata is the metadata read from a single image.
type ImageMetadata struct {
	FileInfo FileInfo          `json:"file_info"`
	Exif     map[string]string `json:"exif,omitempty"`
	GPS      *GPSInfo          `json:"gps,omitempty"`
}

// ImageResult is the per-file outcome of the EXIF module.
type ImageResult struct {
	File     string         `json:"file"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Metadata *ImageMetadata `json:"metadata,omitempty"`
}

// ExifPayload holds the results for every analyzed image.
type ExifPayload struct {
	Images []ImageResult `json:"results,omitempty"`
}

// Module implements Payload.
func (*ExifPayload) Module() Module { return ModuleExifMetadata }
