/*
 *	devbridge exposes host device capabilities over method channels.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package capability

import (
	"net/url"

	"go.arsenm.dev/devbridge/platform"
	"go.arsenm.dev/devbridge/server"
	"go.arsenm.dev/devbridge/status"
	"go.uber.org/zap"
)

// OpenURLArgs are the arguments of openUrl
type OpenURLArgs struct {
	URL *string `mapstructure:"url"`
}

// Browser opens URLs in the platform's default handler
type Browser struct {
	Platform platform.URLOpener
}

// OpenURL asks the platform to open a URL. The platform's own
// outcome is not reported back; failures are only logged.
func (b Browser) OpenURL(ctx *server.Context, args OpenURLArgs) error {
	if args.URL == nil || *args.URL == "" {
		return status.New(status.CodeInvalidArguments, "URL not provided", nil)
	}

	u, err := url.Parse(*args.URL)
	if err != nil || u.Scheme == "" {
		return status.New(status.CodeInvalidArguments, "URL could not be parsed", *args.URL)
	}

	if err := b.Platform.OpenURL(ctx, u); err != nil {
		ctx.Logger().Warn("platform failed to open url", zap.String("url", u.String()), zap.Error(err))
	}
	return nil
}

// SendEmailArgs are the arguments of sendEmail
type SendEmailArgs struct {
	Subject string `mapstructure:"subject"`
}

// Email opens a compose sheet
type Email struct {
	Platform platform.Sharer
}

// SendEmail opens a compose sheet prefilled with the subject. Whether
// the user sends anything is never known, so this always succeeds.
func (e Email) SendEmail(ctx *server.Context, args SendEmailArgs) {
	if err := e.Platform.ShareText(ctx, args.Subject, ""); err != nil {
		ctx.Logger().Warn("platform failed to open compose sheet", zap.Error(err))
	}
}
