package logging

import "github.com/sirupsen/logrus"

// BaseFields are attached to every entry of one command invocation.
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ItemFields identify the wished item a log entry is about.
func ItemFields(itemID string, page int) logrus.Fields {
	return logrus.Fields{
		"item_id": itemID,
		"page":    page,
	}
}
