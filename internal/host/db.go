package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/rcpklmc/sn0int/internal/entity"
)

// familyBinding adapts one entity.Store[Row,New,Update] to the family-name
// routed surface db_insert/db_update/db_select need. Script-level records
// are plain JSON objects; they are marshaled back to JSON and unmarshaled
// into the family's New/Update shape, which carries matching json tags.
type familyBinding interface {
	Insert(ctx context.Context, record map[string]interface{}) (id int64, inserted, updated bool, err error)
	Select(ctx context.Context, value string) (*int64, error)
}

type storeBinding[Row, New, Update any] struct {
	store *entity.Store[Row, New, Update]
}

func (b storeBinding[Row, New, Update]) Insert(ctx context.Context, record map[string]interface{}) (int64, bool, bool, error) {
	var rec New
	if err := remarshal(record, &rec); err != nil {
		return 0, false, false, err
	}
	return b.store.UpsertCounting(ctx, rec)
}

func (b storeBinding[Row, New, Update]) Select(ctx context.Context, value string) (*int64, error) {
	row, err := b.store.GetOpt(ctx, value)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	id := b.store.RowID(*row)
	return &id, nil
}

func remarshal(src map[string]interface{}, dst interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Families wires a Tx's 14 entity.Store instances into name-routed
// bindings for BindDB.
func Families(tx *entity.Tx) map[string]familyBinding {
	return map[string]familyBinding{
		"domain":           storeBinding[entity.DomainRow, entity.NewDomain, entity.DomainUpdate]{tx.Domains},
		"subdomain":        storeBinding[entity.SubdomainRow, entity.NewSubdomain, entity.SubdomainUpdate]{tx.Subdomains},
		"ipaddr":           storeBinding[entity.IpAddrRow, entity.NewIpAddr, entity.IpAddrUpdate]{tx.IpAddrs},
		"subdomain_ipaddr": storeBinding[entity.SubdomainIpAddrRow, entity.NewSubdomainIpAddr, entity.SubdomainIpAddrUpdate]{tx.SubdomainIpAddrs},
		"url":              storeBinding[entity.UrlRow, entity.NewUrl, entity.UrlUpdate]{tx.Urls},
		"email":            storeBinding[entity.EmailRow, entity.NewEmail, entity.EmailUpdate]{tx.Emails},
		"phonenumber":      storeBinding[entity.PhoneNumberRow, entity.NewPhoneNumber, entity.PhoneNumberUpdate]{tx.PhoneNumbers},
		"device":           storeBinding[entity.DeviceRow, entity.NewDevice, entity.DeviceUpdate]{tx.Devices},
		"network":          storeBinding[entity.NetworkRow, entity.NewNetwork, entity.NetworkUpdate]{tx.Networks},
		"network_device":   storeBinding[entity.NetworkDeviceRow, entity.NewNetworkDevice, entity.NetworkDeviceUpdate]{tx.NetworkDevices},
		"account":          storeBinding[entity.AccountRow, entity.NewAccount, entity.AccountUpdate]{tx.Accounts},
		"breach":           storeBinding[entity.BreachRow, entity.NewBreach, entity.BreachUpdate]{tx.Breaches},
		"breach_email":     storeBinding[entity.BreachEmailRow, entity.NewBreachEmail, entity.BreachEmailUpdate]{tx.BreachEmails},
		"image":            storeBinding[entity.ImageRow, entity.NewImage, entity.ImageUpdate]{tx.Images},
	}
}

// BindDB exposes db_insert, db_update and db_select, routed by family name
// to the Tx's per-family entity.Store.
func BindDB(rt *goja.Runtime, st *State) {
	families := Families(st.Tx)

	rt.Set("db_insert", func(family string, record map[string]interface{}) int64 {
		st.ClearError()
		binding, ok := families[family]
		if !ok {
			st.SetError(errUnknownFamily(family))
			return 0
		}
		id, inserted, updated, err := binding.Insert(st.Ctx, record)
		if err != nil {
			st.SetError(err)
			return 0
		}
		if inserted {
			st.RecordInsert()
		} else if updated {
			st.RecordUpdate()
		}
		return id
	})

	// db_update shares insert's upsert-by-value semantics: update's record
	// carries the same optional-attribute shape as insert, so the monotonic
	// diff in entity.Store.Upsert already implements "update only what's
	// present" without a second code path.
	rt.Set("db_update", func(family, key string, update map[string]interface{}) int64 {
		st.ClearError()
		binding, ok := families[family]
		if !ok {
			st.SetError(errUnknownFamily(family))
			return 0
		}
		if update == nil {
			update = map[string]interface{}{}
		}
		update["value"] = key
		id, inserted, updated, err := binding.Insert(st.Ctx, update)
		if err != nil {
			st.SetError(err)
			return 0
		}
		if inserted {
			st.RecordInsert()
		} else if updated {
			st.RecordUpdate()
		}
		return id
	})

	rt.Set("db_select", func(family, value string) interface{} {
		st.ClearError()
		binding, ok := families[family]
		if !ok {
			st.SetError(errUnknownFamily(family))
			return nil
		}
		id, err := binding.Select(st.Ctx, value)
		if err != nil {
			st.SetError(err)
			return nil
		}
		if id == nil {
			return nil
		}
		return *id
	})
}

func errUnknownFamily(family string) error {
	return fmt.Errorf("unknown entity family: %q", family)
}
