// internal/integrations/farnell/types.go
package farnell

import "encoding/json"

// odpowiedź element14 dla searchByPremierFarnellPartNumber (tylko używane pola)
type searchResponse struct {
	Return struct {
		NumberOfResults json.Number  `json:"numberOfResults"`
		Products        []apiProduct `json:"products"`
	} `json:"premierFarnellPartNumberReturn"`
}

type apiProduct struct {
	SKU                  string         `json:"sku"`
	DisplayName          string         `json:"displayName"`
	ProductStatus        string         `json:"productStatus"`
	BrandName            string         `json:"brandName"`
	TranslatedMPN        string         `json:"translatedManufacturerPartNumber"`
	ManufacturerPartNo   string         `json:"manufacturerPartNumber"`
	Inv                  json.Number    `json:"inv"`
	CommodityClassCode   string         `json:"commodityClassCode"`
	TranslatedMinimumQty json.Number    `json:"translatedMinimumOrderQuality"` // sic, tak nazywa to API
	Prices               []apiPrice     `json:"prices"`
	Stock                *apiStock      `json:"stock"`
	Image                *apiImage      `json:"image"`
	Datasheets           []apiDatasheet `json:"datasheets"`
	Attributes           []apiAttribute `json:"attributes"`
}

type apiPrice struct {
	From json.Number `json:"from"`
	To   json.Number `json:"to"`
	Cost json.Number `json:"cost"`
}

type apiStock struct {
	Level         json.Number    `json:"level"`
	LeastLeadTime *json.Number   `json:"leastLeadTime"`
	Breakdown     []apiWarehouse `json:"breakdown"`
}

type apiWarehouse struct {
	Inv       json.Number `json:"inv"`
	Region    string      `json:"region"`
	Warehouse string      `json:"warehouse"`
}

type apiImage struct {
	BaseName string `json:"baseName"`
}

type apiDatasheet struct {
	URL string `json:"url"`
}

type apiAttribute struct {
	Label string `json:"attributeLabel"`
	Value string `json:"attributeValue"`
}
