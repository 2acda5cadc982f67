package entity

import (
	"fmt"

	"github.com/rcpklmc/sn0int/internal/entity/filter"
)

// Optional-attribute diff helpers: "absent or equal" is untouched, "Some
// and different" is dirty. These are the Go analogue of sn0int's
// Option<T>/clear_if_equal pattern (original_source/src/models/network.rs).

func diffStr(existing, incoming *string) (*string, bool) {
	if incoming == nil {
		return nil, false
	}
	if existing != nil && *existing == *incoming {
		return nil, false
	}
	return incoming, true
}

func diffBool(existing, incoming *bool) (*bool, bool) {
	if incoming == nil {
		return nil, false
	}
	if existing != nil && *existing == *incoming {
		return nil, false
	}
	return incoming, true
}

func diffInt64(existing, incoming *int64) (*int64, bool) {
	if incoming == nil {
		return nil, false
	}
	if existing != nil && *existing == *incoming {
		return nil, false
	}
	return incoming, true
}

func diffFloat64(existing, incoming *float64) (*float64, bool) {
	if incoming == nil {
		return nil, false
	}
	if existing != nil && *existing == *incoming {
		return nil, false
	}
	return incoming, true
}

// --- Domain ---------------------------------------------------------------

type DomainRow struct {
	ID       int64  `db:"id" json:"id"`
	Value    string `db:"value" json:"value"`
	Unscoped bool   `db:"unscoped" json:"unscoped"`
}

type NewDomain struct {
	Value string `json:"value"`
}

type DomainUpdate struct {
	ID int64 `json:"id"`
}

var DomainSpec = Spec[DomainRow, NewDomain, DomainUpdate]{
	Family:        "domain",
	Table:         "domains",
	Columns:       map[string]filter.ColumnType{"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool},
	SelectColumns: []string{"id", "value", "unscoped"},
	NewValue:      func(n NewDomain) string { return n.Value },
	RowValue:      func(r DomainRow) string { return r.Value },
	RowID:         func(r DomainRow) int64 { return r.ID },
	InsertColumns: nil,
	InsertArgs:    func(NewDomain) []any { return nil },
	Diff: func(existing DomainRow, _ NewDomain) (DomainUpdate, bool) {
		return DomainUpdate{ID: existing.ID}, false
	},
	UpdateID:          func(u DomainUpdate) int64 { return u.ID },
	UpdateAssignments: func(DomainUpdate) ([]string, []any) { return nil, nil },
}

// --- Subdomain --------------------------------------------------------------

type SubdomainRow struct {
	ID         int64  `db:"id" json:"id"`
	Value      string `db:"value" json:"value"`
	Unscoped   bool   `db:"unscoped" json:"unscoped"`
	DomainID   int64  `db:"domain_id" json:"domain_id"`
	Resolvable *bool  `db:"resolvable" json:"resolvable"`
}

type NewSubdomain struct {
	Value      string `json:"value"`
	DomainID   int64 `json:"domain_id"`
	Resolvable *bool `json:"resolvable"`
}

type SubdomainUpdate struct {
	ID         int64 `json:"id"`
	Resolvable *bool `json:"resolvable"`
}

var SubdomainSpec = Spec[SubdomainRow, NewSubdomain, SubdomainUpdate]{
	Family: "subdomain",
	Table:  "subdomains",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"domain_id": filter.TypeInt, "resolvable": filter.TypeBool,
	},
	SelectColumns: []string{"id", "value", "unscoped", "domain_id", "resolvable"},
	NewValue:      func(n NewSubdomain) string { return n.Value },
	RowValue:      func(r SubdomainRow) string { return r.Value },
	RowID:         func(r SubdomainRow) int64 { return r.ID },
	InsertColumns: []string{"domain_id", "resolvable"},
	InsertArgs:    func(n NewSubdomain) []any { return []any{n.DomainID, n.Resolvable} },
	Diff: func(existing SubdomainRow, incoming NewSubdomain) (SubdomainUpdate, bool) {
		resolvable, dirty := diffBool(existing.Resolvable, incoming.Resolvable)
		return SubdomainUpdate{ID: existing.ID, Resolvable: resolvable}, dirty
	},
	UpdateID: func(u SubdomainUpdate) int64 { return u.ID },
	UpdateAssignments: func(u SubdomainUpdate) ([]string, []any) {
		if u.Resolvable == nil {
			return nil, nil
		}
		return []string{"resolvable = ?"}, []any{u.Resolvable}
	},
}

// --- IpAddr -----------------------------------------------------------------

type IpAddrRow struct {
	ID          int64   `db:"id" json:"id"`
	Value       string  `db:"value" json:"value"`
	Unscoped    bool    `db:"unscoped" json:"unscoped"`
	Country     *string `db:"country" json:"country"`
	ASN         *int64  `db:"asn" json:"asn"`
	Description *string `db:"description" json:"description"`
}

type NewIpAddr struct {
	Value       string `json:"value"`
	Country     *string `json:"country"`
	ASN         *int64 `json:"asn"`
	Description *string `json:"description"`
}

type IpAddrUpdate struct {
	ID          int64 `json:"id"`
	Country     *string `json:"country"`
	ASN         *int64 `json:"asn"`
	Description *string `json:"description"`
}

var IpAddrSpec = Spec[IpAddrRow, NewIpAddr, IpAddrUpdate]{
	Family: "ipaddr",
	Table:  "ipaddrs",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"country": filter.TypeString, "asn": filter.TypeInt, "description": filter.TypeString,
	},
	SelectColumns: []string{"id", "value", "unscoped", "country", "asn", "description"},
	NewValue:      func(n NewIpAddr) string { return n.Value },
	RowValue:      func(r IpAddrRow) string { return r.Value },
	RowID:         func(r IpAddrRow) int64 { return r.ID },
	InsertColumns: []string{"country", "asn", "description"},
	InsertArgs:    func(n NewIpAddr) []any { return []any{n.Country, n.ASN, n.Description} },
	Diff: func(existing IpAddrRow, incoming NewIpAddr) (IpAddrUpdate, bool) {
		country, d1 := diffStr(existing.Country, incoming.Country)
		asn, d2 := diffInt64(existing.ASN, incoming.ASN)
		desc, d3 := diffStr(existing.Description, incoming.Description)
		return IpAddrUpdate{ID: existing.ID, Country: country, ASN: asn, Description: desc}, d1 || d2 || d3
	},
	UpdateID: func(u IpAddrUpdate) int64 { return u.ID },
	UpdateAssignments: func(u IpAddrUpdate) ([]string, []any) {
		var sets []string
		var args []any
		if u.Country != nil {
			sets = append(sets, "country = ?")
			args = append(args, u.Country)
		}
		if u.ASN != nil {
			sets = append(sets, "asn = ?")
			args = append(args, u.ASN)
		}
		if u.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, u.Description)
		}
		return sets, args
	},
}

// --- SubdomainIpAddr (join) ---------------------------------------------------

type SubdomainIpAddrRow struct {
	ID            int64  `db:"id" json:"id"`
	Value         string `db:"value" json:"value"`
	Unscoped      bool   `db:"unscoped" json:"unscoped"`
	SubdomainID   int64  `db:"subdomain_id" json:"subdomain_id"`
	IpAddrID      int64  `db:"ipaddr_id" json:"ipaddr_id"`
}

type NewSubdomainIpAddr struct {
	SubdomainID int64 `json:"subdomain_id"`
	IpAddrID    int64 `json:"ipaddr_id"`
}

type SubdomainIpAddrUpdate struct{ ID int64 }

var SubdomainIpAddrSpec = Spec[SubdomainIpAddrRow, NewSubdomainIpAddr, SubdomainIpAddrUpdate]{
	Family: "subdomain_ipaddr",
	Table:  "subdomain_ipaddrs",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"subdomain_id": filter.TypeInt, "ipaddr_id": filter.TypeInt,
	},
	SelectColumns: []string{"id", "value", "unscoped", "subdomain_id", "ipaddr_id"},
	NewValue:      func(n NewSubdomainIpAddr) string { return joinKey(n.SubdomainID, n.IpAddrID) },
	RowValue:      func(r SubdomainIpAddrRow) string { return r.Value },
	RowID:         func(r SubdomainIpAddrRow) int64 { return r.ID },
	InsertColumns: []string{"subdomain_id", "ipaddr_id"},
	InsertArgs:    func(n NewSubdomainIpAddr) []any { return []any{n.SubdomainID, n.IpAddrID} },
	Diff: func(existing SubdomainIpAddrRow, _ NewSubdomainIpAddr) (SubdomainIpAddrUpdate, bool) {
		return SubdomainIpAddrUpdate{ID: existing.ID}, false
	},
	UpdateID:          func(u SubdomainIpAddrUpdate) int64 { return u.ID },
	UpdateAssignments: func(SubdomainIpAddrUpdate) ([]string, []any) { return nil, nil },
}

func joinKey(a, b int64) string { return fmt.Sprintf("%d:%d", a, b) }

// --- Url ----------------------------------------------------------------

type UrlRow struct {
	ID          int64   `db:"id" json:"id"`
	Value       string  `db:"value" json:"value"`
	Unscoped    bool    `db:"unscoped" json:"unscoped"`
	SubdomainID int64   `db:"subdomain_id" json:"subdomain_id"`
	Status      *int64  `db:"status" json:"status"`
	Body        *string `db:"body" json:"body"`
	Title       *string `db:"title" json:"title"`
}

type NewUrl struct {
	Value       string `json:"value"`
	SubdomainID int64 `json:"subdomain_id"`
	Status      *int64 `json:"status"`
	Body        *string `json:"body"`
	Title       *string `json:"title"`
}

type UrlUpdate struct {
	ID     int64 `json:"id"`
	Status *int64 `json:"status"`
	Body   *string `json:"body"`
	Title  *string `json:"title"`
}

var UrlSpec = Spec[UrlRow, NewUrl, UrlUpdate]{
	Family: "url",
	Table:  "urls",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"subdomain_id": filter.TypeInt, "status": filter.TypeInt, "body": filter.TypeString, "title": filter.TypeString,
	},
	SelectColumns: []string{"id", "value", "unscoped", "subdomain_id", "status", "body", "title"},
	NewValue:      func(n NewUrl) string { return n.Value },
	RowValue:      func(r UrlRow) string { return r.Value },
	RowID:         func(r UrlRow) int64 { return r.ID },
	InsertColumns: []string{"subdomain_id", "status", "body", "title"},
	InsertArgs:    func(n NewUrl) []any { return []any{n.SubdomainID, n.Status, n.Body, n.Title} },
	Diff: func(existing UrlRow, incoming NewUrl) (UrlUpdate, bool) {
		status, d1 := diffInt64(existing.Status, incoming.Status)
		body, d2 := diffStr(existing.Body, incoming.Body)
		title, d3 := diffStr(existing.Title, incoming.Title)
		return UrlUpdate{ID: existing.ID, Status: status, Body: body, Title: title}, d1 || d2 || d3
	},
	UpdateID: func(u UrlUpdate) int64 { return u.ID },
	UpdateAssignments: func(u UrlUpdate) ([]string, []any) {
		var sets []string
		var args []any
		if u.Status != nil {
			sets = append(sets, "status = ?")
			args = append(args, u.Status)
		}
		if u.Body != nil {
			sets = append(sets, "body = ?")
			args = append(args, u.Body)
		}
		if u.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, u.Title)
		}
		return sets, args
	},
}

// --- Email ----------------------------------------------------------------

type EmailRow struct {
	ID       int64  `db:"id" json:"id"`
	Value    string `db:"value" json:"value"`
	Unscoped bool   `db:"unscoped" json:"unscoped"`
	Valid    *bool  `db:"valid" json:"valid"`
}

type NewEmail struct {
	Value string `json:"value"`
	Valid *bool `json:"valid"`
}

type EmailUpdate struct {
	ID    int64 `json:"id"`
	Valid *bool `json:"valid"`
}

var EmailSpec = Spec[EmailRow, NewEmail, EmailUpdate]{
	Family:        "email",
	Table:         "emails",
	Columns:       map[string]filter.ColumnType{"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool, "valid": filter.TypeBool},
	SelectColumns: []string{"id", "value", "unscoped", "valid"},
	NewValue:      func(n NewEmail) string { return n.Value },
	RowValue:      func(r EmailRow) string { return r.Value },
	RowID:         func(r EmailRow) int64 { return r.ID },
	InsertColumns: []string{"valid"},
	InsertArgs:    func(n NewEmail) []any { return []any{n.Valid} },
	Diff: func(existing EmailRow, incoming NewEmail) (EmailUpdate, bool) {
		valid, dirty := diffBool(existing.Valid, incoming.Valid)
		return EmailUpdate{ID: existing.ID, Valid: valid}, dirty
	},
	UpdateID: func(u EmailUpdate) int64 { return u.ID },
	UpdateAssignments: func(u EmailUpdate) ([]string, []any) {
		if u.Valid == nil {
			return nil, nil
		}
		return []string{"valid = ?"}, []any{u.Valid}
	},
}

// --- PhoneNumber --------------------------------------------------------------

type PhoneNumberRow struct {
	ID       int64   `db:"id" json:"id"`
	Value    string  `db:"value" json:"value"`
	Unscoped bool    `db:"unscoped" json:"unscoped"`
	Valid    *bool   `db:"valid" json:"valid"`
	Name     *string `db:"name" json:"name"`
	Country  *string `db:"country" json:"country"`
}

type NewPhoneNumber struct {
	Value   string `json:"value"`
	Valid   *bool `json:"valid"`
	Name    *string `json:"name"`
	Country *string `json:"country"`
}

type PhoneNumberUpdate struct {
	ID      int64 `json:"id"`
	Valid   *bool `json:"valid"`
	Name    *string `json:"name"`
	Country *string `json:"country"`
}

var PhoneNumberSpec = Spec[PhoneNumberRow, NewPhoneNumber, PhoneNumberUpdate]{
	Family: "phonenumber",
	Table:  "phonenumbers",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"valid": filter.TypeBool, "name": filter.TypeString, "country": filter.TypeString,
	},
	SelectColumns: []string{"id", "value", "unscoped", "valid", "name", "country"},
	NewValue:      func(n NewPhoneNumber) string { return n.Value },
	RowValue:      func(r PhoneNumberRow) string { return r.Value },
	RowID:         func(r PhoneNumberRow) int64 { return r.ID },
	InsertColumns: []string{"valid", "name", "country"},
	InsertArgs:    func(n NewPhoneNumber) []any { return []any{n.Valid, n.Name, n.Country} },
	Diff: func(existing PhoneNumberRow, incoming NewPhoneNumber) (PhoneNumberUpdate, bool) {
		valid, d1 := diffBool(existing.Valid, incoming.Valid)
		name, d2 := diffStr(existing.Name, incoming.Name)
		country, d3 := diffStr(existing.Country, incoming.Country)
		return PhoneNumberUpdate{ID: existing.ID, Valid: valid, Name: name, Country: country}, d1 || d2 || d3
	},
	UpdateID: func(u PhoneNumberUpdate) int64 { return u.ID },
	UpdateAssignments: func(u PhoneNumberUpdate) ([]string, []any) {
		var sets []string
		var args []any
		if u.Valid != nil {
			sets = append(sets, "valid = ?")
			args = append(args, u.Valid)
		}
		if u.Name != nil {
			sets = append(sets, "name = ?")
			args = append(args, u.Name)
		}
		if u.Country != nil {
			sets = append(sets, "country = ?")
			args = append(args, u.Country)
		}
		return sets, args
	},
}

// --- Device -----------------------------------------------------------------

type DeviceRow struct {
	ID       int64   `db:"id" json:"id"`
	Value    string  `db:"value" json:"value"`
	Unscoped bool    `db:"unscoped" json:"unscoped"`
	Vendor   *string `db:"vendor" json:"vendor"`
	Hostname *string `db:"hostname" json:"hostname"`
	LastSeen *string `db:"last_seen" json:"last_seen"`
}

type NewDevice struct {
	Value    string `json:"value"`
	Vendor   *string `json:"vendor"`
	Hostname *string `json:"hostname"`
	LastSeen *string `json:"last_seen"`
}

type DeviceUpdate struct {
	ID       int64 `json:"id"`
	Vendor   *string `json:"vendor"`
	Hostname *string `json:"hostname"`
	LastSeen *string `json:"last_seen"`
}

var DeviceSpec = Spec[DeviceRow, NewDevice, DeviceUpdate]{
	Family: "device",
	Table:  "devices",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"vendor": filter.TypeString, "hostname": filter.TypeString, "last_seen": filter.TypeString,
	},
	SelectColumns: []string{"id", "value", "unscoped", "vendor", "hostname", "last_seen"},
	NewValue:      func(n NewDevice) string { return n.Value },
	RowValue:      func(r DeviceRow) string { return r.Value },
	RowID:         func(r DeviceRow) int64 { return r.ID },
	InsertColumns: []string{"vendor", "hostname", "last_seen"},
	InsertArgs:    func(n NewDevice) []any { return []any{n.Vendor, n.Hostname, n.LastSeen} },
	Diff: func(existing DeviceRow, incoming NewDevice) (DeviceUpdate, bool) {
		vendor, d1 := diffStr(existing.Vendor, incoming.Vendor)
		hostname, d2 := diffStr(existing.Hostname, incoming.Hostname)
		lastSeen, d3 := diffStr(existing.LastSeen, incoming.LastSeen)
		return DeviceUpdate{ID: existing.ID, Vendor: vendor, Hostname: hostname, LastSeen: lastSeen}, d1 || d2 || d3
	},
	UpdateID: func(u DeviceUpdate) int64 { return u.ID },
	UpdateAssignments: func(u DeviceUpdate) ([]string, []any) {
		var sets []string
		var args []any
		if u.Vendor != nil {
			sets = append(sets, "vendor = ?")
			args = append(args, u.Vendor)
		}
		if u.Hostname != nil {
			sets = append(sets, "hostname = ?")
			args = append(args, u.Hostname)
		}
		if u.LastSeen != nil {
			sets = append(sets, "last_seen = ?")
			args = append(args, u.LastSeen)
		}
		return sets, args
	},
}

// --- Network ----------------------------------------------------------------

type NetworkRow struct {
	ID        int64    `db:"id" json:"id"`
	Value     string   `db:"value" json:"value"`
	Unscoped  bool     `db:"unscoped" json:"unscoped"`
	Latitude  *float64 `db:"latitude" json:"latitude"`
	Longitude *float64 `db:"longitude" json:"longitude"`
}

type NewNetwork struct {
	Value     string `json:"value"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type NetworkUpdate struct {
	ID        int64 `json:"id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

var NetworkSpec = Spec[NetworkRow, NewNetwork, NetworkUpdate]{
	Family: "network",
	Table:  "networks",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
	},
	SelectColumns: []string{"id", "value", "unscoped", "latitude", "longitude"},
	NewValue:      func(n NewNetwork) string { return n.Value },
	RowValue:      func(r NetworkRow) string { return r.Value },
	RowID:         func(r NetworkRow) int64 { return r.ID },
	InsertColumns: []string{"latitude", "longitude"},
	InsertArgs:    func(n NewNetwork) []any { return []any{n.Latitude, n.Longitude} },
	Diff: func(existing NetworkRow, incoming NewNetwork) (NetworkUpdate, bool) {
		lat, d1 := diffFloat64(existing.Latitude, incoming.Latitude)
		lon, d2 := diffFloat64(existing.Longitude, incoming.Longitude)
		return NetworkUpdate{ID: existing.ID, Latitude: lat, Longitude: lon}, d1 || d2
	},
	UpdateID: func(u NetworkUpdate) int64 { return u.ID },
	UpdateAssignments: func(u NetworkUpdate) ([]string, []any) {
		var sets []string
		var args []any
		if u.Latitude != nil {
			sets = append(sets, "latitude = ?")
			args = append(args, u.Latitude)
		}
		if u.Longitude != nil {
			sets = append(sets, "longitude = ?")
			args = append(args, u.Longitude)
		}
		return sets, args
	},
}

// --- NetworkDevice (join) ----------------------------------------------------

type NetworkDeviceRow struct {
	ID        int64   `db:"id" json:"id"`
	Value     string  `db:"value" json:"value"`
	Unscoped  bool    `db:"unscoped" json:"unscoped"`
	NetworkID int64   `db:"network_id" json:"network_id"`
	DeviceID  int64   `db:"device_id" json:"device_id"`
	IpAddr    *string `db:"ipaddr" json:"ipaddr"`
	LastSeen  *string `db:"last_seen" json:"last_seen"`
}

type NewNetworkDevice struct {
	NetworkID int64 `json:"network_id"`
	DeviceID  int64 `json:"device_id"`
	IpAddr    *string `json:"ipaddr"`
	LastSeen  *string `json:"last_seen"`
}

type NetworkDeviceUpdate struct {
	ID       int64 `json:"id"`
	IpAddr   *string `json:"ipaddr"`
	LastSeen *string `json:"last_seen"`
}

var NetworkDeviceSpec = Spec[NetworkDeviceRow, NewNetworkDevice, NetworkDeviceUpdate]{
	Family: "network_device",
	Table:  "network_devices",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"network_id": filter.TypeInt, "device_id": filter.TypeInt, "ipaddr": filter.TypeString, "last_seen": filter.TypeString,
	},
	SelectColumns: []string{"id", "value", "unscoped", "network_id", "device_id", "ipaddr", "last_seen"},
	NewValue:      func(n NewNetworkDevice) string { return joinKey(n.NetworkID, n.DeviceID) },
	RowValue:      func(r NetworkDeviceRow) string { return r.Value },
	RowID:         func(r NetworkDeviceRow) int64 { return r.ID },
	InsertColumns: []string{"network_id", "device_id", "ipaddr", "last_seen"},
	InsertArgs:    func(n NewNetworkDevice) []any { return []any{n.NetworkID, n.DeviceID, n.IpAddr, n.LastSeen} },
	Diff: func(existing NetworkDeviceRow, incoming NewNetworkDevice) (NetworkDeviceUpdate, bool) {
		ip, d1 := diffStr(existing.IpAddr, incoming.IpAddr)
		lastSeen, d2 := diffStr(existing.LastSeen, incoming.LastSeen)
		return NetworkDeviceUpdate{ID: existing.ID, IpAddr: ip, LastSeen: lastSeen}, d1 || d2
	},
	UpdateID: func(u NetworkDeviceUpdate) int64 { return u.ID },
	UpdateAssignments: func(u NetworkDeviceUpdate) ([]string, []any) {
		var sets []string
		var args []any
		if u.IpAddr != nil {
			sets = append(sets, "ipaddr = ?")
			args = append(args, u.IpAddr)
		}
		if u.LastSeen != nil {
			sets = append(sets, "last_seen = ?")
			args = append(args, u.LastSeen)
		}
		return sets, args
	},
}

// --- Account ----------------------------------------------------------------

type AccountRow struct {
	ID       int64   `db:"id" json:"id"`
	Value    string  `db:"value" json:"value"`
	Unscoped bool    `db:"unscoped" json:"unscoped"`
	Url      *string `db:"url" json:"url"`
	LastSeen *string `db:"last_seen" json:"last_seen"`
}

type NewAccount struct {
	Value    string `json:"value"`
	Url      *string `json:"url"`
	LastSeen *string `json:"last_seen"`
}

type AccountUpdate struct {
	ID       int64 `json:"id"`
	Url      *string `json:"url"`
	LastSeen *string `json:"last_seen"`
}

var AccountSpec = Spec[AccountRow, NewAccount, AccountUpdate]{
	Family: "account",
	Table:  "accounts",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"url": filter.TypeString, "last_seen": filter.TypeString,
	},
	SelectColumns: []string{"id", "value", "unscoped", "url", "last_seen"},
	NewValue:      func(n NewAccount) string { return n.Value },
	RowValue:      func(r AccountRow) string { return r.Value },
	RowID:         func(r AccountRow) int64 { return r.ID },
	InsertColumns: []string{"url", "last_seen"},
	InsertArgs:    func(n NewAccount) []any { return []any{n.Url, n.LastSeen} },
	Diff: func(existing AccountRow, incoming NewAccount) (AccountUpdate, bool) {
		url, d1 := diffStr(existing.Url, incoming.Url)
		lastSeen, d2 := diffStr(existing.LastSeen, incoming.LastSeen)
		return AccountUpdate{ID: existing.ID, Url: url, LastSeen: lastSeen}, d1 || d2
	},
	UpdateID: func(u AccountUpdate) int64 { return u.ID },
	UpdateAssignments: func(u AccountUpdate) ([]string, []any) {
		var sets []string
		var args []any
		if u.Url != nil {
			sets = append(sets, "url = ?")
			args = append(args, u.Url)
		}
		if u.LastSeen != nil {
			sets = append(sets, "last_seen = ?")
			args = append(args, u.LastSeen)
		}
		return sets, args
	},
}

// --- Breach -----------------------------------------------------------------

type BreachRow struct {
	ID       int64  `db:"id" json:"id"`
	Value    string `db:"value" json:"value"`
	Unscoped bool   `db:"unscoped" json:"unscoped"`
}

type NewBreach struct {
	Value string `json:"value"`
}
type BreachUpdate struct {
	ID int64 `json:"id"`
}

var BreachSpec = Spec[BreachRow, NewBreach, BreachUpdate]{
	Family:        "breach",
	Table:         "breaches",
	Columns:       map[string]filter.ColumnType{"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool},
	SelectColumns: []string{"id", "value", "unscoped"},
	NewValue:      func(n NewBreach) string { return n.Value },
	RowValue:      func(r BreachRow) string { return r.Value },
	RowID:         func(r BreachRow) int64 { return r.ID },
	InsertColumns: nil,
	InsertArgs:    func(NewBreach) []any { return nil },
	Diff: func(existing BreachRow, _ NewBreach) (BreachUpdate, bool) {
		return BreachUpdate{ID: existing.ID}, false
	},
	UpdateID:          func(u BreachUpdate) int64 { return u.ID },
	UpdateAssignments: func(BreachUpdate) ([]string, []any) { return nil, nil },
}

// --- BreachEmail (join) -------------------------------------------------------

type BreachEmailRow struct {
	ID       int64   `db:"id" json:"id"`
	Value    string  `db:"value" json:"value"`
	Unscoped bool    `db:"unscoped" json:"unscoped"`
	BreachID int64   `db:"breach_id" json:"breach_id"`
	EmailID  int64   `db:"email_id" json:"email_id"`
	Password *string `db:"password" json:"password"`
}

type NewBreachEmail struct {
	BreachID int64 `json:"breach_id"`
	EmailID  int64 `json:"email_id"`
	Password *string `json:"password"`
}

type BreachEmailUpdate struct {
	ID       int64 `json:"id"`
	Password *string `json:"password"`
}

var BreachEmailSpec = Spec[BreachEmailRow, NewBreachEmail, BreachEmailUpdate]{
	Family: "breach_email",
	Table:  "breach_emails",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"breach_id": filter.TypeInt, "email_id": filter.TypeInt, "password": filter.TypeString,
	},
	SelectColumns: []string{"id", "value", "unscoped", "breach_id", "email_id", "password"},
	NewValue:      func(n NewBreachEmail) string { return joinKey(n.BreachID, n.EmailID) },
	RowValue:      func(r BreachEmailRow) string { return r.Value },
	RowID:         func(r BreachEmailRow) int64 { return r.ID },
	InsertColumns: []string{"breach_id", "email_id", "password"},
	InsertArgs:    func(n NewBreachEmail) []any { return []any{n.BreachID, n.EmailID, n.Password} },
	Diff: func(existing BreachEmailRow, incoming NewBreachEmail) (BreachEmailUpdate, bool) {
		password, dirty := diffStr(existing.Password, incoming.Password)
		return BreachEmailUpdate{ID: existing.ID, Password: password}, dirty
	},
	UpdateID: func(u BreachEmailUpdate) int64 { return u.ID },
	UpdateAssignments: func(u BreachEmailUpdate) ([]string, []any) {
		if u.Password == nil {
			return nil, nil
		}
		return []string{"password = ?"}, []any{u.Password}
	},
}

// --- Image ------------------------------------------------------------------

type ImageRow struct {
	ID          int64    `db:"id" json:"id"`
	Value       string   `db:"value" json:"value"`
	Unscoped    bool     `db:"unscoped" json:"unscoped"`
	CameraMake  *string  `db:"camera_make" json:"camera_make"`
	CameraModel *string  `db:"camera_model" json:"camera_model"`
	Latitude    *float64 `db:"latitude" json:"latitude"`
	Longitude   *float64 `db:"longitude" json:"longitude"`
	CreatedAt   *string  `db:"created_at" json:"created_at"`
}

type NewImage struct {
	Value       string `json:"value"`
	CameraMake  *string `json:"camera_make"`
	CameraModel *string `json:"camera_model"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	CreatedAt   *string `json:"created_at"`
}

type ImageUpdate struct {
	ID          int64 `json:"id"`
	CameraMake  *string `json:"camera_make"`
	CameraModel *string `json:"camera_model"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	CreatedAt   *string `json:"created_at"`
}

var ImageSpec = Spec[ImageRow, NewImage, ImageUpdate]{
	Family: "image",
	Table:  "images",
	Columns: map[string]filter.ColumnType{
		"id": filter.TypeInt, "value": filter.TypeString, "unscoped": filter.TypeBool,
		"camera_make": filter.TypeString, "camera_model": filter.TypeString, "created_at": filter.TypeString,
	},
	SelectColumns: []string{"id", "value", "unscoped", "camera_make", "camera_model", "latitude", "longitude", "created_at"},
	NewValue:      func(n NewImage) string { return n.Value },
	RowValue:      func(r ImageRow) string { return r.Value },
	RowID:         func(r ImageRow) int64 { return r.ID },
	InsertColumns: []string{"camera_make", "camera_model", "latitude", "longitude", "created_at"},
	InsertArgs: func(n NewImage) []any {
		return []any{n.CameraMake, n.CameraModel, n.Latitude, n.Longitude, n.CreatedAt}
	},
	Diff: func(existing ImageRow, incoming NewImage) (ImageUpdate, bool) {
		make_, d1 := diffStr(existing.CameraMake, incoming.CameraMake)
		model, d2 := diffStr(existing.CameraModel, incoming.CameraModel)
		lat, d3 := diffFloat64(existing.Latitude, incoming.Latitude)
		lon, d4 := diffFloat64(existing.Longitude, incoming.Longitude)
		createdAt, d5 := diffStr(existing.CreatedAt, incoming.CreatedAt)
		return ImageUpdate{
			ID: existing.ID, CameraMake: make_, CameraModel: model,
			Latitude: lat, Longitude: lon, CreatedAt: createdAt,
		}, d1 || d2 || d3 || d4 || d5
	},
	UpdateID: func(u ImageUpdate) int64 { return u.ID },
	UpdateAssignments: func(u ImageUpdate) ([]string, []any) {
		var sets []string
		var args []any
		if u.CameraMake != nil {
			sets = append(sets, "camera_make = ?")
			args = append(args, u.CameraMake)
		}
		if u.CameraModel != nil {
			sets = append(sets, "camera_model = ?")
			args = append(args, u.CameraModel)
		}
		if u.Latitude != nil {
			sets = append(sets, "latitude = ?")
			args = append(args, u.Latitude)
		}
		if u.Longitude != nil {
			sets = append(sets, "longitude = ?")
			args = append(args, u.Longitude)
		}
		if u.CreatedAt != nil {
			sets = append(sets, "created_at = ?")
			args = append(args, u.CreatedAt)
		}
		return sets, args
	},
}
