// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"

	"github.com/devblok/kanvas/device"
	"github.com/devblok/kanvas/gfx/vkr"
	log "github.com/sirupsen/logrus"
)

var indent = flag.Bool("indent", false, "Indent the JSON output")

func main() {
	flag.Parse()

	api, err := vkr.NewAPI(nil)
	if err != nil {
		log.Fatal(err)
	}

	devices, err := device.Describe(api)
	if err != nil {
		log.Fatal(err)
	}

	var bytes []byte
	if *indent {
		bytes, err = json.MarshalIndent(devices, "", "  ")
	} else {
		bytes, err = json.Marshal(devices)
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s\n", bytes)
}
