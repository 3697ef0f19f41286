// Package config loads .hitcase.json project settings.
//
// The file is looked up in the working directory and its parents. Values it
// sets override DefaultConfig; CLI flags override both.
package config
