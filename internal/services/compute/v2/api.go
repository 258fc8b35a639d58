// Package compute is the client for the compute service, version 2.
package compute

import (
	"net/http"

	"github.com/fivetwenty-io/cloudsdk/internal/operator"
)

var idParam = operator.Param{Location: operator.LocationURL, Type: operator.TypeString}

var listServersOp = operator.Operation{
	Method: http.MethodGet,
	Path:   "/servers/detail",
	Params: map[string]operator.Param{
		"limit":  {Location: operator.LocationQuery, Type: operator.TypeInteger},
		"marker": {Location: operator.LocationQuery, Type: operator.TypeString},
		"name":   {Location: operator.LocationQuery, Type: operator.TypeString},
		"status": {Location: operator.LocationQuery, Type: operator.TypeString},
		"flavor": {Location: operator.LocationQuery, Type: operator.TypeString},
		"image":  {Location: operator.LocationQuery, Type: operator.TypeString},
	},
}

var getServerOp = operator.Operation{
	Method: http.MethodGet,
	Path:   "/servers/{id}",
	Params: map[string]operator.Param{"id": idParam},
}

var createServerOp = operator.Operation{
	Method:  http.MethodPost,
	Path:    "/servers",
	JSONKey: "server",
	Params: map[string]operator.Param{
		"name":     {Location: operator.LocationJSON, Type: operator.TypeString, Required: true},
		"imageId":  {Location: operator.LocationJSON, Type: operator.TypeString, SentAs: "imageRef"},
		"flavorId": {Location: operator.LocationJSON, Type: operator.TypeString, SentAs: "flavorRef", Required: true},
		"keyName":  {Location: operator.LocationJSON, Type: operator.TypeString, SentAs: "key_name"},
		"userData": {Location: operator.LocationJSON, Type: operator.TypeString, SentAs: "user_data"},
		"metadata": {Location: operator.LocationJSON, Type: operator.TypeObject},
		"networks": {
			Location: operator.LocationJSON,
			Type:     operator.TypeArray,
			Items: &operator.Param{
				Type: operator.TypeObject,
				Properties: map[string]operator.Param{
					"uuid":    {Type: operator.TypeString},
					"port":    {Type: operator.TypeString},
					"fixedIp": {Type: operator.TypeString, SentAs: "fixed_ip"},
				},
			},
		},
		"securityGroups": {
			Location: operator.LocationJSON,
			Type:     operator.TypeArray,
			SentAs:   "security_groups",
			Items: &operator.Param{
				Type:       operator.TypeObject,
				Properties: map[string]operator.Param{"name": {Type: operator.TypeString}},
			},
		},
	},
}

var deleteServerOp = operator.Operation{
	Method: http.MethodDelete,
	Path:   "/servers/{id}",
	Params: map[string]operator.Param{"id": idParam},
}

var listFlavorsOp = operator.Operation{
	Method: http.MethodGet,
	Path:   "/flavors/detail",
	Params: map[string]operator.Param{
		"limit":   {Location: operator.LocationQuery, Type: operator.TypeInteger},
		"minDisk": {Location: operator.LocationQuery, Type: operator.TypeInteger},
		"minRam":  {Location: operator.LocationQuery, Type: operator.TypeInteger},
	},
}
