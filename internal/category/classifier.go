// Package category maps supplier names and descriptions onto coarse
// business categories via static keyword tables, and supplies the default
// account and VAT code for each category. It is deterministic and does no
// I/O.
package category

import (
	"strings"

	"github.com/konteragroup/kontera/internal/model"
)

// Default is the bookkeeping default for one supplier category.
type Default struct {
	Account     string
	AccountName string
	VatCode     string
}

// keywordTable maps lowercase keywords to categories. Matching is
// case-insensitive substring match against supplier name and description.
// Order within a category does not matter; category order is fixed by
// categoryOrder below so classification is deterministic.
var keywordTable = map[model.SupplierCategory][]string{
	model.CategoryTelecom:        {"telia", "telenor", "tele2", "tre ", "bredband", "telefon", "mobil"},
	model.CategorySoftware:       {"microsoft", "adobe", "atlassian", "github", "software", "saas", "licens", "programvar", "prenumeration"},
	model.CategoryTravel:         {"sj ab", "sas ", "norwegian", "flyg", "hotell", "hotel", "taxi", "resebyrå", "parkering"},
	model.CategoryFuel:           {"circle k", "okq8", "preem", "shell", "st1", "bensin", "diesel", "drivmedel"},
	model.CategoryOfficeSupplies: {"staples", "lyreco", "kontorsmaterial", "kontorsmateriel", "papper", "toner"},
	model.CategoryFood:           {"restaurang", "restaurant", "café", "cafe", "lunch", "catering", "konditori", "pizzeria"},
	model.CategoryUtilities:      {"vattenfall", "eon", "e.on", "fortum", "ellevio", "elnät", "fjärrvärme", "elhandel"},
	model.CategoryInsurance:      {"försäkring", "trygg-hansa", "folksam", "länsförsäkringar", "if skade"},
	model.CategoryMarketing:      {"facebook", "meta platforms", "google ads", "linkedin", "annons", "reklam", "marknadsföring"},
	model.CategoryConsulting:     {"konsult", "advokat", "revision", "redovisning", "jurist"},
	model.CategoryEquipment:      {"elgiganten", "dustin", "webhallen", "kjell", "inventarier", "dator", "skrivare", "skärm"},
}

// categoryOrder fixes the evaluation order so overlapping keywords always
// resolve the same way.
var categoryOrder = []model.SupplierCategory{
	model.CategoryTelecom,
	model.CategorySoftware,
	model.CategoryTravel,
	model.CategoryFuel,
	model.CategoryOfficeSupplies,
	model.CategoryFood,
	model.CategoryUtilities,
	model.CategoryInsurance,
	model.CategoryMarketing,
	model.CategoryConsulting,
	model.CategoryEquipment,
}

// categoryDefaults maps each category to exactly one (account, VAT) pair.
// Accounts follow the BAS chart of accounts.
var categoryDefaults = map[model.SupplierCategory]Default{
	model.CategoryTelecom:        {Account: "6212", AccountName: "Telefon och internet", VatCode: "25"},
	model.CategorySoftware:       {Account: "5420", AccountName: "Programvaror", VatCode: "25"},
	model.CategoryTravel:         {Account: "5800", AccountName: "Resekostnader", VatCode: "06"},
	model.CategoryFuel:           {Account: "5611", AccountName: "Drivmedel", VatCode: "25"},
	model.CategoryOfficeSupplies: {Account: "6110", AccountName: "Kontorsmateriel", VatCode: "25"},
	model.CategoryFood:           {Account: "6071", AccountName: "Representation, avdragsgill", VatCode: "12"},
	model.CategoryUtilities:      {Account: "5020", AccountName: "El för belysning", VatCode: "25"},
	model.CategoryInsurance:      {Account: "6310", AccountName: "Företagsförsäkringar", VatCode: "00"},
	model.CategoryMarketing:      {Account: "5900", AccountName: "Reklam och PR", VatCode: "25"},
	model.CategoryConsulting:     {Account: "6550", AccountName: "Konsultarvoden", VatCode: "25"},
	model.CategoryEquipment:      {Account: "1220", AccountName: "Inventarier och verktyg", VatCode: "25"},
	model.CategoryOther:          {Account: "4010", AccountName: "Inköp av varor och material", VatCode: "25"},
}

// Classify returns the category whose keyword table first matches the
// supplier name or description, or CategoryOther when nothing matches.
func Classify(supplierName, description string) model.SupplierCategory {
	haystack := strings.ToLower(supplierName + " " + description)

	for _, cat := range categoryOrder {
		for _, keyword := range keywordTable[cat] {
			if strings.Contains(haystack, keyword) {
				return cat
			}
		}
	}

	return model.CategoryOther
}

// Defaults returns the default account and VAT code for a category.
// Unknown categories get the CategoryOther defaults.
func Defaults(cat model.SupplierCategory) Default {
	if d, ok := categoryDefaults[cat]; ok {
		return d
	}
	return categoryDefaults[model.CategoryOther]
}

// CommonAccounts returns the distinct category default accounts, used as
// guidance for AI account inference. The list is bounded by the number of
// categories and returned in fixed order.
func CommonAccounts() []Default {
	accounts := make([]Default, 0, len(categoryOrder)+1)
	seen := make(map[string]struct{}, len(categoryOrder)+1)

	for _, cat := range append(categoryOrder, model.CategoryOther) {
		d := categoryDefaults[cat]
		if _, ok := seen[d.Account]; ok {
			continue
		}
		seen[d.Account] = struct{}{}
		accounts = append(accounts, d)
	}

	return accounts
}
