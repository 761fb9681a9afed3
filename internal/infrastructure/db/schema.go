package db

import (
	"context"
	"fmt"
	"strings"
)

// schema is applied on startup. The inventory check constraint is the final
// authority on stock: no statement may leave a SKU below zero.
const schema = `
create table if not exists stock_units (
    sku            text primary key,
    product_name   text not null default '',
    inventory      integer not null check (inventory >= 0),
    weight         {{money}} not null default 0,
    updated_at_ms  bigint not null
);

create table if not exists sku_prices (
    sku       text not null references stock_units (sku),
    currency  text not null,
    price     {{money}} not null,
    primary key (sku, currency)
);

create table if not exists shopping_sessions (
    session_id     {{serial}},
    cookie         text not null unique,
    created_at_ms  bigint not null,
    expire_at_ms   bigint not null
);

create table if not exists cart_items (
    session_id  bigint not null references shopping_sessions (session_id),
    sku         text not null references stock_units (sku),
    qty         integer not null check (qty > 0),
    primary key (session_id, sku)
);

create table if not exists taxes (
    tax_id  {{serial}},
    name    text not null,
    rate    {{money}} not null
);

create table if not exists ship_settings (
    ship_id    {{serial}},
    country    text not null unique,
    usd_price  {{money}} not null,
    ngn_price  {{money}} not null
);

create table if not exists reservations (
    reservation_id  {{uuid}} primary key,
    cart_id         text not null,
    sku             text not null references stock_units (sku),
    qty             integer not null check (qty >= 0),
    status          text not null,
    created_at_ms   bigint not null,
    expire_at_ms    bigint not null,
    updated_at_ms   bigint not null
);

create unique index if not exists ux_reservations_pending
    on reservations (cart_id, sku) where status = 'PENDING';

create index if not exists ix_reservations_status_expire
    on reservations (status, expire_at_ms);

create table if not exists payment_details (
    payment_id     {{uuid}} primary key,
    reference_id   text not null unique,
    provider       text not null,
    cart_id        text not null,
    principal      text not null default '',
    email          text not null default '',
    name           text not null default '',
    phone          text not null default '',
    currency       text not null,
    amount         {{money}} not null,
    created_at_ms  bigint not null
);

create index if not exists ix_payment_details_principal
    on payment_details (principal, created_at_ms);

create table if not exists payment_intents (
    reference_id   text primary key,
    cart_id        text not null,
    principal      text not null default '',
    currency       text not null,
    total          {{money}} not null,
    created_at_ms  bigint not null,
    expire_at_ms   bigint not null
);

create table if not exists payment_intent_lines (
    reference_id  text not null references payment_intents (reference_id),
    sku           text not null,
    qty           integer not null check (qty > 0),
    primary key (reference_id, sku)
);

create index if not exists ix_payment_intents_created
    on payment_intents (created_at_ms);

create table if not exists payment_addresses (
    payment_id     {{uuid}} primary key references payment_details (payment_id),
    address        text not null default '',
    city           text not null default '',
    state          text not null default '',
    postcode       text not null default '',
    country        text not null default '',
    delivery_info  text not null default ''
);

create table if not exists order_details (
    order_id    {{uuid}} primary key,
    payment_id  {{uuid}} not null references payment_details (payment_id),
    sku         text not null references stock_units (sku),
    qty         integer not null check (qty > 0)
);

create table if not exists outbox_messages (
    id               {{uuid}} primary key,
    type             text not null,
    payload_json     text not null,
    occurred_at_ms   bigint not null,
    retry_count      integer not null default 0,
    processed_at_ms  bigint
);

insert into taxes (tax_id, name, rate) values (1, 'VAT', '0.075') on conflict do nothing;

insert into ship_settings (ship_id, country, usd_price, ngn_price)
values (1, 'default', '0', '0') on conflict do nothing
`

// reseed moves Postgres serial sequences past the ids seeded above so later
// inserts without an explicit id do not collide with them.
const reseed = `
select setval(pg_get_serial_sequence('taxes', 'tax_id'), (select max(tax_id) from taxes));

select setval(pg_get_serial_sequence('ship_settings', 'ship_id'), (select max(ship_id) from ship_settings))
`

// Migrate applies the schema statement by statement. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := s.dialect.types.Replace(schema)
	if s.dialect.reseedSerials {
		ddl += ";" + reseed
	}
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: apply schema: %w", s.dialect.Name, err)
		}
	}
	return nil
}
